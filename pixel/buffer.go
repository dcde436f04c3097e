package pixel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// MaxBytes bounds the storage of a single buffer. Larger requests fail with
// ErrResourceExhausted before anything is allocated.
const MaxBytes = 1 << 34

// MaxBands is the largest band count of any mode.
const MaxBands = 4

// Pixel holds one sample per band; trailing unused elements are zero.
// A float64 represents every sample of every mode exactly.
type Pixel [MaxBands]float64

// Gray returns a single-band pixel.
func Gray(v float64) Pixel { return Pixel{v} }

// RGB returns a three-band pixel.
func RGB(r, g, b float64) Pixel { return Pixel{r, g, b} }

// RGBA returns a four-band pixel.
func RGBA(r, g, b, a float64) Pixel { return Pixel{r, g, b, a} }

// Buffer is an in-memory raster with a fixed mode and size.
//
// A Buffer has a single owner. Operations document whether they mutate the
// receiver or return a newly owned buffer; storage is never shared between
// two live buffers.
type Buffer struct {
	mode    Mode
	width   int
	height  int
	stride  int
	data    []byte
	palette *Palette
}

func checkGeometry(mode Mode, width, height int) (int, error) {
	if !mode.IsValid() {
		return 0, fmt.Errorf("pixel: mode %d: %w", mode, ErrInvalidArgument)
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("pixel: dimensions %dx%d: %w", width, height, ErrInvalidArgument)
	}
	rowBits := int64(width) * int64(mode.BitsPerPixel())
	total := (rowBits + 7) / 8 * int64(height)
	if total > MaxBytes || total > math.MaxInt {
		return 0, fmt.Errorf("pixel: %dx%d %s needs %d bytes: %w", width, height, mode, total, ErrResourceExhausted)
	}
	return mode.RowBytes(width), nil
}

// Allocate creates a zero-initialized buffer. Indexed modes start with the
// grayscale palette so that index 0 is always valid.
func Allocate(mode Mode, width, height int) (*Buffer, error) {
	stride, err := checkGeometry(mode, width, height)
	if err != nil {
		return nil, err
	}
	b := &Buffer{
		mode:   mode,
		width:  width,
		height: height,
		stride: stride,
		data:   make([]byte, stride*height),
	}
	if mode.IsIndexed() {
		b.palette = GrayscalePalette()
	}
	return b, nil
}

// FromBytes wraps data as a buffer without copying. Ownership of data moves
// to the buffer; the caller must not use it afterwards. data must hold at
// least RowBytes(width)*height bytes.
func FromBytes(mode Mode, width, height int, data []byte) (*Buffer, error) {
	stride, err := checkGeometry(mode, width, height)
	if err != nil {
		return nil, err
	}
	if len(data) < stride*height {
		return nil, fmt.Errorf("pixel: %d bytes for %dx%d %s: %w", len(data), width, height, mode, ErrInvalidArgument)
	}
	b := &Buffer{
		mode:   mode,
		width:  width,
		height: height,
		stride: stride,
		data:   data[:stride*height],
	}
	if mode == Mode1 {
		b.ClearPadding()
	}
	if mode.IsIndexed() {
		b.palette = GrayscalePalette()
		if err := b.ValidateIndices(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ClearPadding zeroes the unused low bits at the end of each Mode1 row.
// It is a no-op for other modes.
func (b *Buffer) ClearPadding() {
	if b.mode != Mode1 || b.width%8 == 0 {
		return
	}
	keep := byte(0xFF << uint(8-b.width%8))
	for y := range b.height {
		row := b.Row(y)
		row[len(row)-1] &= keep
	}
}

// Mode returns the pixel mode.
func (b *Buffer) Mode() Mode { return b.mode }

// Width returns the image width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the image height in pixels.
func (b *Buffer) Height() int { return b.height }

// Stride returns the number of bytes per row.
func (b *Buffer) Stride() int { return b.stride }

// Bounds returns the buffer extent anchored at the origin.
func (b *Buffer) Bounds() Rect { return Rect{Width: b.width, Height: b.height} }

// Data returns the raw pixel storage. Writes through it must keep the
// buffer's invariants (palette indices in range, Mode1 padding bits zero).
func (b *Buffer) Data() []byte { return b.data }

// Row returns the storage of row y, or nil if y is out of range.
func (b *Buffer) Row(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	start := y * b.stride
	return b.data[start : start+b.stride]
}

// Palette returns the palette of an indexed buffer, or nil.
func (b *Buffer) Palette() *Palette { return b.palette }

// SetPalette replaces the palette of an indexed buffer. Every stored index
// must be in range for the new palette. Mutates the receiver.
func (b *Buffer) SetPalette(p *Palette) error {
	if !b.mode.IsIndexed() {
		return fmt.Errorf("pixel: set palette on %s buffer: %w", b.mode, ErrInvalidArgument)
	}
	if p == nil {
		return fmt.Errorf("pixel: nil palette: %w", ErrInvalidArgument)
	}
	if limit := maxIndex(b); limit >= p.Len() {
		return fmt.Errorf("pixel: index %d exceeds palette of %d: %w", limit, p.Len(), ErrInvalidArgument)
	}
	b.palette = p
	return nil
}

// ValidateIndices checks that every stored index is within the palette.
// Decoders that write indices through Data call it before handing the
// buffer out.
func (b *Buffer) ValidateIndices() error {
	if !b.mode.IsIndexed() {
		return nil
	}
	if limit := maxIndex(b); limit >= b.palette.Len() {
		return fmt.Errorf("pixel: index %d exceeds palette of %d: %w", limit, b.palette.Len(), ErrCorrupt)
	}
	return nil
}

func maxIndex(b *Buffer) int {
	step := b.mode.BytesPerPixel()
	hi := 0
	for i := 0; i < len(b.data); i += step {
		if v := int(b.data[i]); v > hi {
			hi = v
		}
	}
	return hi
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return &Buffer{
		mode:    b.mode,
		width:   b.width,
		height:  b.height,
		stride:  b.stride,
		data:    data,
		palette: b.palette,
	}
}

// Equal reports whether both buffers have the same mode, size, samples and
// palette.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.mode != o.mode || b.width != o.width || b.height != o.height {
		return false
	}
	if b.mode.IsIndexed() && !b.palette.Equal(o.palette) {
		return false
	}
	for y := range b.height {
		if !bytes.Equal(b.Row(y), o.Row(y)) {
			return false
		}
	}
	return true
}

func (b *Buffer) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// GetPixel returns the samples at (x, y).
// Returns ErrOutOfBounds outside [0,width)×[0,height).
func (b *Buffer) GetPixel(x, y int) (Pixel, error) {
	if !b.inBounds(x, y) {
		return Pixel{}, fmt.Errorf("pixel: get (%d,%d) in %dx%d: %w", x, y, b.width, b.height, ErrOutOfBounds)
	}
	return b.At(x, y), nil
}

// At returns the samples at (x, y) without an error result. Coordinates
// outside the buffer yield the zero Pixel.
func (b *Buffer) At(x, y int) Pixel {
	var p Pixel
	if !b.inBounds(x, y) {
		return p
	}
	row := b.data[y*b.stride:]
	switch b.mode {
	case Mode1:
		if GetBit(row, x) {
			p[0] = 255
		}
	case ModeI16:
		p[0] = float64(binary.LittleEndian.Uint16(row[2*x:]))
	case ModeI:
		p[0] = float64(int32(binary.LittleEndian.Uint32(row[4*x:])))
	case ModeF:
		p[0] = float64(math.Float32frombits(binary.LittleEndian.Uint32(row[4*x:])))
	default:
		n := b.mode.Bands()
		off := x * n
		for i := range n {
			p[i] = float64(row[off+i])
		}
	}
	return p
}

// SetPixel stores p at (x, y). Mutates the receiver.
// Returns ErrOutOfBounds outside the buffer and ErrInvalidArgument when a
// sample is outside the range of the mode or a palette index is not populated.
func (b *Buffer) SetPixel(x, y int, p Pixel) error {
	if !b.inBounds(x, y) {
		return fmt.Errorf("pixel: set (%d,%d) in %dx%d: %w", x, y, b.width, b.height, ErrOutOfBounds)
	}
	if err := b.CheckPixel(p); err != nil {
		return err
	}
	b.set(x, y, p)
	return nil
}

// CheckPixel validates p against the mode's sample ranges and, for indexed
// modes, against the palette length.
func (b *Buffer) CheckPixel(p Pixel) error {
	info := b.mode.Info()
	for i := range info.Bands {
		v := p[i]
		var lo, hi float64
		switch {
		case info.Sample == SampleFloat:
			if math.IsNaN(v) || math.Abs(v) > math.MaxFloat32 {
				return fmt.Errorf("pixel: sample %v for %s: %w", v, b.mode, ErrInvalidArgument)
			}
			continue
		case info.Sample == SampleInt:
			lo, hi = math.MinInt32, math.MaxInt32
		case info.BitsPerBand == 16:
			lo, hi = 0, math.MaxUint16
		default:
			lo, hi = 0, 255
		}
		if v < lo || v > hi || v != math.Trunc(v) {
			return fmt.Errorf("pixel: sample %v for %s band %d: %w", v, b.mode, i, ErrInvalidArgument)
		}
	}
	if info.Indexed && int(p[0]) >= b.palette.Len() {
		return fmt.Errorf("pixel: index %v with palette of %d: %w", p[0], b.palette.Len(), ErrInvalidArgument)
	}
	return nil
}

func (b *Buffer) set(x, y int, p Pixel) {
	row := b.data[y*b.stride:]
	switch b.mode {
	case Mode1:
		PutBit(row, x, p[0] != 0)
	case ModeI16:
		binary.LittleEndian.PutUint16(row[2*x:], uint16(p[0]))
	case ModeI:
		binary.LittleEndian.PutUint32(row[4*x:], uint32(int32(p[0])))
	case ModeF:
		binary.LittleEndian.PutUint32(row[4*x:], math.Float32bits(float32(p[0])))
	default:
		n := b.mode.Bands()
		off := x * n
		for i := range n {
			row[off+i] = byte(p[i])
		}
	}
}

// Fill sets every pixel to p. Mutates the receiver.
func (b *Buffer) Fill(p Pixel) error {
	if err := b.CheckPixel(p); err != nil {
		return err
	}
	if b.height == 0 {
		return nil
	}
	for x := range b.width {
		b.set(x, 0, p)
	}
	first := b.Row(0)
	for y := 1; y < b.height; y++ {
		copy(b.Row(y), first)
	}
	return nil
}

// Crop returns a new buffer holding the pixels inside r. The rectangle must
// be non-empty and lie inside the buffer.
func (b *Buffer) Crop(r Rect) (*Buffer, error) {
	if r.Empty() || !r.In(b.Bounds()) {
		return nil, fmt.Errorf("pixel: crop %v from %dx%d: %w", r, b.width, b.height, ErrInvalidArgument)
	}
	out, err := Allocate(b.mode, r.Width, r.Height)
	if err != nil {
		return nil, err
	}
	out.palette = b.palette
	copyRect(out, Point{}, b, r)
	return out, nil
}

// copyRect copies the src pixels in r to dst at p. Both buffers share a mode
// and the rectangle has already been clipped.
func copyRect(dst *Buffer, p Point, src *Buffer, r Rect) {
	if src.mode == Mode1 {
		for y := range r.Height {
			srow := src.Row(r.Y + y)
			drow := dst.Row(p.Y + y)
			for x := range r.Width {
				PutBit(drow, p.X+x, GetBit(srow, r.X+x))
			}
		}
		return
	}
	bpp := src.mode.BytesPerPixel()
	n := r.Width * bpp
	for y := range r.Height {
		srow := src.Row(r.Y + y)[r.X*bpp:]
		drow := dst.Row(p.Y + y)[p.X*bpp:]
		copy(drow[:n], srow[:n])
	}
}

// GetBit reads pixel x of a packed MSB-first bilevel row.
func GetBit(row []byte, x int) bool {
	return row[x>>3]&(0x80>>uint(x&7)) != 0
}

// PutBit writes pixel x of a packed MSB-first bilevel row.
func PutBit(row []byte, x int, on bool) {
	mask := byte(0x80 >> uint(x&7))
	if on {
		row[x>>3] |= mask
	} else {
		row[x>>3] &^= mask
	}
}
