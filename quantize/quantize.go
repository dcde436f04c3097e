// Package quantize reduces buffers to bounded palettes.
//
// Quantize builds a palette of at most maxColors entries with one of three
// methods and maps every pixel to its nearest entry. When the buffer holds no
// more distinct colors than requested, every method returns exactly those
// colors in order of first appearance.
package quantize

import (
	"fmt"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// Method selects the palette construction algorithm.
type Method uint8

const (
	// MethodMedianCut splits the box with the largest population-weighted
	// extent at the population median of its longest axis.
	MethodMedianCut Method = iota
	// MethodMaxCoverage splits the box with the largest volume at the
	// midpoint of its longest axis.
	MethodMaxCoverage
	// MethodOctree inserts colors into an octree and merges the least
	// populated nodes until the leaf count fits.
	MethodOctree
)

var methodNames = [...]string{"mediancut", "maxcoverage", "octree"}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", m)
}

// ParseMethod returns the method with the given name.
func ParseMethod(name string) (Method, bool) {
	for i, n := range methodNames {
		if n == name {
			return Method(i), true
		}
	}
	return 0, false
}

// Metric selects the color distance used when mapping pixels to entries.
type Metric uint8

const (
	// MetricRGB is squared Euclidean distance over the sample values.
	MetricRGB Metric = iota
	// MetricLab is squared Euclidean distance in CIE L*a*b*.
	MetricLab
)

// Options configures Quantize and Map. The zero value is median cut with RGB
// distance and no dithering.
type Options struct {
	Method Method
	Metric Metric
	// Dither enables Floyd-Steinberg error diffusion while mapping.
	Dither bool
}

// Result holds a palette and the P buffer indexing into it.
type Result struct {
	Palette *pixel.Palette
	Indices *pixel.Buffer
}

// MaxColors is the largest palette Quantize can build.
const MaxColors = pixel.MaxPaletteLen

func checkSource(buf *pixel.Buffer) error {
	if buf == nil {
		return fmt.Errorf("quantize: nil buffer: %w", pixel.ErrInvalidArgument)
	}
	switch buf.Mode() {
	case pixel.ModeL, pixel.ModeRGB, pixel.ModeRGBA, pixel.ModeP:
		return nil
	default:
		return fmt.Errorf("quantize: %s buffer: %w", buf.Mode(), pixel.ErrInvalidArgument)
	}
}

// Quantize returns a palette of at most maxColors entries for buf together
// with the index buffer. buf may be L, RGB, RGBA or P. buf is not modified.
//
// Returns ErrInvalidArgument when maxColors is outside [1,256], the mode is
// not supported or the options name an unknown method.
func Quantize(buf *pixel.Buffer, maxColors int, opts Options) (*Result, error) {
	if err := checkSource(buf); err != nil {
		return nil, err
	}
	if maxColors < 1 || maxColors > MaxColors {
		return nil, fmt.Errorf("quantize: %d colors: %w", maxColors, pixel.ErrInvalidArgument)
	}
	if opts.Method > MethodOctree {
		return nil, fmt.Errorf("quantize: %s: %w", opts.Method, pixel.ErrInvalidArgument)
	}

	src := newSource(buf)
	hist := src.histogram()

	var colors []pixel.Color
	if len(hist.entries) <= maxColors {
		colors = hist.colors()
	} else {
		switch opts.Method {
		case MethodMedianCut:
			colors = splitBoxes(hist, maxColors, medianCut)
		case MethodMaxCoverage:
			colors = splitBoxes(hist, maxColors, maxCoverage)
		case MethodOctree:
			colors = octree(hist, maxColors, src.dims)
		}
	}
	pal, err := pixel.NewPalette(colors)
	if err != nil {
		return nil, err
	}
	idx, err := mapSource(src, pal, opts)
	if err != nil {
		return nil, err
	}
	logging.Logger().Debug("quantize", "method", opts.Method,
		"distinct", len(hist.entries), "colors", pal.Len(), "dither", opts.Dither)
	return &Result{Palette: pal, Indices: idx}, nil
}

// Map returns a P buffer mapping each pixel of buf to its nearest entry in
// pal. buf may be L, RGB, RGBA or P.
func Map(buf *pixel.Buffer, pal *pixel.Palette, opts Options) (*pixel.Buffer, error) {
	if err := checkSource(buf); err != nil {
		return nil, err
	}
	if pal == nil || pal.Len() == 0 {
		return nil, fmt.Errorf("quantize: empty palette: %w", pixel.ErrInvalidArgument)
	}
	src := newSource(buf)
	if pal.HasAlpha() {
		src.dims = 4
	}
	return mapSource(src, pal, opts)
}

// source reads any supported buffer as straight RGBA.
type source struct {
	buf  *pixel.Buffer
	dims int
}

func newSource(buf *pixel.Buffer) *source {
	dims := 3
	if buf.Mode() == pixel.ModeRGBA || (buf.Mode() == pixel.ModeP && buf.Palette().HasAlpha()) {
		dims = 4
	}
	return &source{buf: buf, dims: dims}
}

func (s *source) at(x int, row []byte) pixel.Color {
	switch s.buf.Mode() {
	case pixel.ModeL:
		v := row[x]
		return pixel.Color{R: v, G: v, B: v, A: 255}
	case pixel.ModeRGB:
		return pixel.Color{R: row[3*x], G: row[3*x+1], B: row[3*x+2], A: 255}
	case pixel.ModeRGBA:
		c := pixel.Color{R: row[4*x], G: row[4*x+1], B: row[4*x+2], A: row[4*x+3]}
		if s.dims == 3 {
			c.A = 255
		}
		return c
	default:
		return s.buf.Palette().At(int(row[x]))
	}
}

func pack(c pixel.Color) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

type entry struct {
	c     pixel.Color
	count int
}

type histogram struct {
	entries []entry
	dims    int
}

// histogram counts colors in order of first appearance.
func (s *source) histogram() *histogram {
	h := &histogram{dims: s.dims}
	seen := make(map[uint32]int)
	for y := range s.buf.Height() {
		row := s.buf.Row(y)
		for x := range s.buf.Width() {
			c := s.at(x, row)
			k := pack(c)
			if i, ok := seen[k]; ok {
				h.entries[i].count++
				continue
			}
			seen[k] = len(h.entries)
			h.entries = append(h.entries, entry{c: c, count: 1})
		}
	}
	return h
}

func (h *histogram) colors() []pixel.Color {
	out := make([]pixel.Color, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.c
	}
	return out
}

func mapSource(src *source, pal *pixel.Palette, opts Options) (*pixel.Buffer, error) {
	w, h := src.buf.Width(), src.buf.Height()
	dst, err := pixel.Allocate(pixel.ModeP, w, h)
	if err != nil {
		return nil, err
	}
	if err := dst.SetPalette(pal); err != nil {
		return nil, err
	}
	m := newMatcher(pal, src.dims, opts.Metric)
	if opts.Dither {
		ditherFloydSteinberg(src, dst, m)
		return dst, nil
	}
	for y := range h {
		row := src.buf.Row(y)
		out := dst.Row(y)
		for x := range w {
			out[x] = uint8(m.nearest(src.at(x, row)))
		}
	}
	return dst, nil
}
