package pixel

import (
	"encoding/binary"
	"fmt"
	"math"
)

// maskReader yields the 0..255 coverage of a mask pixel.
type maskReader func(x, y int) int

func newMaskReader(mask *Buffer) (maskReader, error) {
	switch mask.mode {
	case Mode1:
		return func(x, y int) int {
			if GetBit(mask.Row(y), x) {
				return 255
			}
			return 0
		}, nil
	case ModeL:
		return func(x, y int) int { return int(mask.Row(y)[x]) }, nil
	case ModeLA:
		return func(x, y int) int { return int(mask.Row(y)[2*x+1]) }, nil
	case ModeRGBA:
		return func(x, y int) int { return int(mask.Row(y)[4*x+3]) }, nil
	default:
		return nil, fmt.Errorf("pixel: mask mode %s: %w", mask.mode, ErrInvalidArgument)
	}
}

// blend8 returns dst*(1-m)+src*m for m in 0..255, rounded to nearest.
func blend8(d, s, m int) byte {
	return byte((d*(255-m) + s*m + 127) / 255)
}

// blendInt is blend8 for wide integer samples; rounding is half away from
// zero so negative I samples are not biased downward.
func blendInt(d, s int64, m int) int64 {
	n := d*int64(255-m) + s*int64(m)
	if n >= 0 {
		return (n + 127) / 255
	}
	return -((-n + 127) / 255)
}

// sharesData reports whether a and b are backed by the same pixel storage,
// as buffers wrapping one slice with FromBytes are.
func sharesData(a, b *Buffer) bool {
	return a == b || len(a.data) > 0 && len(b.data) > 0 && &a.data[0] == &b.data[0]
}

// clipPaste computes the source rectangle (in src coordinates) and the
// destination origin after clipping a src-sized area placed at at against dst.
func clipPaste(dst *Buffer, srcW, srcH int, at Point) (Rect, Point) {
	placed := Rect{X: at.X, Y: at.Y, Width: srcW, Height: srcH}
	vis := placed.Intersect(dst.Bounds())
	if vis.Empty() {
		return Rect{}, Point{}
	}
	return Rect{X: vis.X - at.X, Y: vis.Y - at.Y, Width: vis.Width, Height: vis.Height}, Point{X: vis.X, Y: vis.Y}
}

// Paste composites src onto dst with its top-left corner at at. Mutates dst.
//
// The modes of dst and src must match. The pasted area is clipped to dst.
// When mask is non-nil it must have src's size and be Mode1, ModeL, ModeLA or
// ModeRGBA (the alpha band is used); each destination sample becomes
// dst*(1-m)+src*m with m = mask/255, computed in integer arithmetic with
// rounding. Palette indices and bilevel samples cannot be blended, so for
// them the source wins where m >= 128.
func Paste(dst, src *Buffer, at Point, mask *Buffer) error {
	if dst == nil || src == nil {
		return fmt.Errorf("pixel: paste nil buffer: %w", ErrInvalidArgument)
	}
	if dst.mode != src.mode {
		return fmt.Errorf("pixel: paste %s onto %s: %w", src.mode, dst.mode, ErrInvalidArgument)
	}
	// Reads must see dst as it was before the paste.
	if sharesData(dst, src) {
		src = src.Clone()
	}
	var mr maskReader
	if mask != nil {
		if sharesData(dst, mask) {
			mask = mask.Clone()
		}
		if mask.width != src.width || mask.height != src.height {
			return fmt.Errorf("pixel: mask %dx%d for source %dx%d: %w",
				mask.width, mask.height, src.width, src.height, ErrInvalidArgument)
		}
		var err error
		if mr, err = newMaskReader(mask); err != nil {
			return err
		}
	}
	if dst.mode.IsIndexed() {
		if limit := maxIndex(src); limit >= dst.palette.Len() {
			return fmt.Errorf("pixel: paste index %d into palette of %d: %w", limit, dst.palette.Len(), ErrInvalidArgument)
		}
	}

	r, p := clipPaste(dst, src.width, src.height, at)
	if r.Empty() {
		return nil
	}
	if mr == nil {
		copyRect(dst, p, src, r)
		return nil
	}
	for y := range r.Height {
		for x := range r.Width {
			m := mr(r.X+x, r.Y+y)
			if m == 0 {
				continue
			}
			blendPixel(dst, p.X+x, p.Y+y, src.At(r.X+x, r.Y+y), m)
		}
	}
	return nil
}

// FillMask composites the solid color ink onto dst through mask, whose
// top-left corner is placed at at. Mutates dst. The mask rules are those of
// Paste.
func FillMask(dst *Buffer, ink Pixel, at Point, mask *Buffer) error {
	if dst == nil || mask == nil {
		return fmt.Errorf("pixel: fill with nil buffer: %w", ErrInvalidArgument)
	}
	if err := dst.CheckPixel(ink); err != nil {
		return err
	}
	if sharesData(dst, mask) {
		mask = mask.Clone()
	}
	mr, err := newMaskReader(mask)
	if err != nil {
		return err
	}
	r, p := clipPaste(dst, mask.width, mask.height, at)
	for y := range r.Height {
		for x := range r.Width {
			m := mr(r.X+x, r.Y+y)
			if m == 0 {
				continue
			}
			blendPixel(dst, p.X+x, p.Y+y, ink, m)
		}
	}
	return nil
}

// blendPixel mixes s into dst at (x, y) with coverage m in 1..255.
func blendPixel(dst *Buffer, x, y int, s Pixel, m int) {
	row := dst.Row(y)
	switch dst.mode {
	case Mode1:
		if m >= 128 {
			PutBit(row, x, s[0] != 0)
		}
	case ModeP:
		if m >= 128 {
			row[x] = byte(s[0])
		}
	case ModePA:
		if m >= 128 {
			row[2*x] = byte(s[0])
		}
		row[2*x+1] = blend8(int(row[2*x+1]), int(s[1]), m)
	case ModeI16:
		d := int64(binary.LittleEndian.Uint16(row[2*x:]))
		binary.LittleEndian.PutUint16(row[2*x:], uint16(blendInt(d, int64(s[0]), m)))
	case ModeI:
		d := int64(int32(binary.LittleEndian.Uint32(row[4*x:])))
		binary.LittleEndian.PutUint32(row[4*x:], uint32(int32(blendInt(d, int64(s[0]), m))))
	case ModeF:
		d := float64(math.Float32frombits(binary.LittleEndian.Uint32(row[4*x:])))
		f := float64(m) / 255
		binary.LittleEndian.PutUint32(row[4*x:], math.Float32bits(float32(d*(1-f)+s[0]*f)))
	default:
		n := dst.mode.Bands()
		off := x * n
		for i := range n {
			row[off+i] = blend8(int(row[off+i]), int(s[i]), m)
		}
	}
}
