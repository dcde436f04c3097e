// Package resample resizes pixel buffers with separable convolution filters.
//
// A resize runs as two one-dimensional passes. The pass producing the
// smaller intermediate buffer runs first and a pass is skipped when its
// dimension does not change. Taps outside the source are replicated from the
// nearest edge pixel, and weights are normalized per output sample so that
// uniform input stays uniform.
//
// 8-bit and 16-bit samples use 22-bit fixed point with round-half-up; I and F
// buffers accumulate in float64. Buffers with an alpha band are resampled
// premultiplied.
package resample

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// Resize returns src scaled to width×height as a new buffer.
//
// Returns ErrInvalidArgument for non-positive dimensions, a nil filter, or a
// 1, P or PA buffer with a filter other than Nearest. Arguments are checked
// before anything is allocated.
func Resize(src *pixel.Buffer, width, height int, f *Filter) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("resample: nil buffer: %w", pixel.ErrInvalidArgument)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resample: size %dx%d: %w", width, height, pixel.ErrInvalidArgument)
	}
	if f == nil {
		return nil, fmt.Errorf("resample: nil filter: %w", pixel.ErrInvalidArgument)
	}
	mode := src.Mode()
	if f != Nearest && (mode == pixel.Mode1 || mode.IsIndexed()) {
		return nil, fmt.Errorf("resample: %s filter on %s buffer: %w", f.Name, mode, pixel.ErrInvalidArgument)
	}

	logging.Logger().Debug("resample",
		"mode", mode, "from", fmt.Sprintf("%dx%d", src.Width(), src.Height()),
		"to", fmt.Sprintf("%dx%d", width, height), "filter", f.Name)

	if width == src.Width() && height == src.Height() {
		return src.Clone(), nil
	}
	if f == Nearest {
		return resizeNearest(src, width, height)
	}
	switch mode {
	case pixel.ModeLA, pixel.ModeRGBA, pixel.ModeI, pixel.ModeF:
		return resizeFloat(src, width, height, f)
	default:
		return resizeFixed(src, width, height, f)
	}
}

// Thumbnail scales src down to fit within maxWidth×maxHeight, keeping the
// aspect ratio. A buffer that already fits is returned as a copy.
func Thumbnail(src *pixel.Buffer, maxWidth, maxHeight int, f *Filter) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("resample: nil buffer: %w", pixel.ErrInvalidArgument)
	}
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, fmt.Errorf("resample: thumbnail bound %dx%d: %w", maxWidth, maxHeight, pixel.ErrInvalidArgument)
	}
	w, h := src.Width(), src.Height()
	if w <= maxWidth && h <= maxHeight {
		return src.Clone(), nil
	}
	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	nw := min(max(int(math.Round(float64(w)*scale)), 1), maxWidth)
	nh := min(max(int(math.Round(float64(h)*scale)), 1), maxHeight)
	return Resize(src, nw, nh, f)
}

// horizontalFirst reports whether the horizontal pass should run first.
func horizontalFirst(inW, inH, outW, outH int) bool {
	return int64(outW)*int64(inH) <= int64(inW)*int64(outH)
}

func resizeNearest(src *pixel.Buffer, width, height int) (*pixel.Buffer, error) {
	dst, err := pixel.Allocate(src.Mode(), width, height)
	if err != nil {
		return nil, err
	}
	if p := src.Palette(); p != nil {
		if err := dst.SetPalette(p); err != nil {
			return nil, err
		}
	}
	sx := float64(src.Width()) / float64(width)
	sy := float64(src.Height()) / float64(height)
	xs := make([]int, width)
	for x := range xs {
		xs[x] = nearestIndex(x, sx, src.Width())
	}
	bpp := src.Mode().BytesPerPixel()
	for y := range height {
		s := src.Row(nearestIndex(y, sy, src.Height()))
		d := dst.Row(y)
		if bpp == 0 {
			for x, from := range xs {
				pixel.PutBit(d, x, pixel.GetBit(s, from))
			}
			continue
		}
		for x, from := range xs {
			copy(d[x*bpp:(x+1)*bpp], s[from*bpp:(from+1)*bpp])
		}
	}
	return dst, nil
}

// fixedPlane is an interleaved raster of 8 or 16 bit unsigned samples.
type fixedPlane struct {
	w, h, bands, bps int
	max              int64
	data             []byte
}

func (p *fixedPlane) get(i int) int64 {
	if p.bps == 2 {
		return int64(binary.LittleEndian.Uint16(p.data[2*i:]))
	}
	return int64(p.data[i])
}

func (p *fixedPlane) put(i int, acc int64) {
	v := (acc + fixedHalf) >> fixedBits
	v = min(max(v, 0), p.max)
	if p.bps == 2 {
		binary.LittleEndian.PutUint16(p.data[2*i:], uint16(v))
		return
	}
	p.data[i] = byte(v)
}

func (p *fixedPlane) sized(w, h int) *fixedPlane {
	return &fixedPlane{w: w, h: h, bands: p.bands, bps: p.bps, max: p.max,
		data: make([]byte, w*h*p.bands*p.bps)}
}

func (p *fixedPlane) horizontal(w int, cs []fixedContribution) *fixedPlane {
	dst := p.sized(w, p.h)
	n := p.bands
	for y := range p.h {
		srow := y * p.w * n
		drow := y * w * n
		for x, c := range cs {
			for b := range n {
				var acc int64
				for k, wt := range c.weights {
					acc += wt * p.get(srow+(c.start+k)*n+b)
				}
				dst.put(drow+x*n+b, acc)
			}
		}
	}
	return dst
}

func (p *fixedPlane) vertical(h int, cs []fixedContribution) *fixedPlane {
	dst := p.sized(p.w, h)
	line := p.w * p.bands
	for y, c := range cs {
		drow := y * line
		for i := range line {
			var acc int64
			for k, wt := range c.weights {
				acc += wt * p.get((c.start+k)*line+i)
			}
			dst.put(drow+i, acc)
		}
	}
	return dst
}

func resizeFixed(src *pixel.Buffer, width, height int, f *Filter) (*pixel.Buffer, error) {
	mode := src.Mode()
	dst, err := pixel.Allocate(mode, width, height)
	if err != nil {
		return nil, err
	}
	p := &fixedPlane{
		w: src.Width(), h: src.Height(), bands: mode.Bands(),
		bps: mode.BitsPerBand() / 8, max: 1<<mode.BitsPerBand() - 1,
		data: src.Data(),
	}
	hpass := func(p *fixedPlane) *fixedPlane {
		if p.w == width {
			return p
		}
		return p.horizontal(width, cachedCoefficients(p.w, width, f).fixed)
	}
	vpass := func(p *fixedPlane) *fixedPlane {
		if p.h == height {
			return p
		}
		return p.vertical(height, cachedCoefficients(p.h, height, f).fixed)
	}
	if horizontalFirst(p.w, p.h, width, height) {
		p = vpass(hpass(p))
	} else {
		p = hpass(vpass(p))
	}
	copy(dst.Data(), p.data)
	return dst, nil
}

// floatPlane is an interleaved raster of float64 samples.
type floatPlane struct {
	w, h, bands int
	data        []float64
}

func (p *floatPlane) horizontal(w int, cs []Contribution) *floatPlane {
	n := p.bands
	dst := &floatPlane{w: w, h: p.h, bands: n, data: make([]float64, w*p.h*n)}
	for y := range p.h {
		srow := p.data[y*p.w*n:]
		drow := dst.data[y*w*n:]
		for x, c := range cs {
			for b := range n {
				var acc float64
				for k, wt := range c.Weights {
					acc += wt * srow[(c.Start+k)*n+b]
				}
				drow[x*n+b] = acc
			}
		}
	}
	return dst
}

func (p *floatPlane) vertical(h int, cs []Contribution) *floatPlane {
	line := p.w * p.bands
	dst := &floatPlane{w: p.w, h: h, bands: p.bands, data: make([]float64, line*h)}
	for y, c := range cs {
		drow := dst.data[y*line:]
		for i := range line {
			var acc float64
			for k, wt := range c.Weights {
				acc += wt * p.data[(c.Start+k)*line+i]
			}
			drow[i] = acc
		}
	}
	return dst
}

func loadFloat(src *pixel.Buffer) *floatPlane {
	mode := src.Mode()
	n := mode.Bands()
	p := &floatPlane{w: src.Width(), h: src.Height(), bands: n, data: make([]float64, src.Width()*src.Height()*n)}
	i := 0
	for y := range src.Height() {
		row := src.Row(y)
		for x := range src.Width() {
			switch mode {
			case pixel.ModeI:
				p.data[i] = float64(int32(binary.LittleEndian.Uint32(row[4*x:])))
				i++
			case pixel.ModeF:
				p.data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(row[4*x:])))
				i++
			default:
				px := row[x*n : (x+1)*n]
				a := float64(px[n-1])
				for b := range n - 1 {
					p.data[i+b] = float64(px[b]) * a / 255
				}
				p.data[i+n-1] = a
				i += n
			}
		}
	}
	return p
}

func storeFloat(dst *pixel.Buffer, p *floatPlane) {
	mode := dst.Mode()
	n := p.bands
	i := 0
	for y := range dst.Height() {
		row := dst.Row(y)
		for x := range dst.Width() {
			switch mode {
			case pixel.ModeI:
				v := math.Floor(p.data[i] + 0.5)
				v = min(max(v, math.MinInt32), math.MaxInt32)
				binary.LittleEndian.PutUint32(row[4*x:], uint32(int32(v)))
				i++
			case pixel.ModeF:
				binary.LittleEndian.PutUint32(row[4*x:], math.Float32bits(float32(p.data[i])))
				i++
			default:
				a := min(max(p.data[i+n-1], 0), 255)
				px := row[x*n : (x+1)*n]
				for b := range n - 1 {
					var c float64
					if a > 0 {
						c = p.data[i+b] * 255 / a
					}
					px[b] = byte(min(max(math.Floor(c+0.5), 0), 255))
				}
				px[n-1] = byte(math.Floor(a + 0.5))
				i += n
			}
		}
	}
}

func resizeFloat(src *pixel.Buffer, width, height int, f *Filter) (*pixel.Buffer, error) {
	dst, err := pixel.Allocate(src.Mode(), width, height)
	if err != nil {
		return nil, err
	}
	p := loadFloat(src)
	hpass := func(p *floatPlane) *floatPlane {
		if p.w == width {
			return p
		}
		return p.horizontal(width, cachedCoefficients(p.w, width, f).float)
	}
	vpass := func(p *floatPlane) *floatPlane {
		if p.h == height {
			return p
		}
		return p.vertical(height, cachedCoefficients(p.h, height, f).float)
	}
	if horizontalFirst(p.w, p.h, width, height) {
		p = vpass(hpass(p))
	} else {
		p = hpass(vpass(p))
	}
	storeFloat(dst, p)
	return dst, nil
}
