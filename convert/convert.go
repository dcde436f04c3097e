// Package convert implements the color conversion engine.
//
// Every conversion takes a buffer of exactly its declared source mode and
// returns a newly allocated buffer in the target mode. Arithmetic is fixed
// point with round-half-up, so results are reproducible across platforms.
//
// Conversions between 8-bit modes pass through straight RGBA: alpha is kept
// when both modes carry it, dropped when the target has none and set fully
// opaque when only the target has it. Wide modes (I;16, I, F) meet the 8-bit
// modes through L. Conversion to the fixed web palette is provided for P
// targets; adaptive palettes are built by the quantize package.
package convert

import (
	"fmt"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

type rowFunc func(dst, src []byte, width int, pal *pixel.Palette)

// Converter transcodes buffers of mode From into mode To.
type Converter struct {
	From, To pixel.Mode

	row rowFunc
	// keepPalette carries the source palette into an indexed target.
	keepPalette bool
}

var webPalette = func() *pixel.Palette {
	colors := make([]pixel.Color, 0, 216)
	for r := range 6 {
		for g := range 6 {
			for b := range 6 {
				colors = append(colors, pixel.Color{R: uint8(r * 51), G: uint8(g * 51), B: uint8(b * 51), A: 255})
			}
		}
	}
	p, _ := pixel.NewPalette(colors)
	return p
}()

// WebPalette returns the 216-color palette used for conversions into P.
func WebPalette() *pixel.Palette {
	return webPalette
}

// Lookup returns the converter between two modes.
// Returns ErrInvalidArgument when either mode is not valid.
func Lookup(from, to pixel.Mode) (*Converter, error) {
	if !from.IsValid() || !to.IsValid() {
		return nil, fmt.Errorf("convert: %s to %s: %w", from, to, pixel.ErrInvalidArgument)
	}
	c := &Converter{From: from, To: to}
	switch {
	case from == to:
		c.keepPalette = true
		c.row = func(dst, src []byte, _ int, _ *pixel.Palette) { copy(dst, src) }
	case from == pixel.ModeP && to == pixel.ModePA:
		c.keepPalette = true
		c.row = func(dst, src []byte, width int, pal *pixel.Palette) {
			for x := range width {
				dst[2*x] = src[x]
				dst[2*x+1] = pal.At(int(src[x])).A
			}
		}
	case from == pixel.ModePA && to == pixel.ModeP:
		c.keepPalette = true
		c.row = func(dst, src []byte, width int, _ *pixel.Palette) {
			for x := range width {
				dst[x] = src[2*x]
			}
		}
	case (from == pixel.ModeL || isWide(from)) && (to == pixel.ModeL || isWide(to)):
		c.row = func(dst, src []byte, width int, _ *pixel.Palette) {
			wideRow(dst, src, from, to, width)
		}
	case isWide(from):
		c.row = func(dst, src []byte, width int, _ *pixel.Palette) {
			l := make([]byte, width)
			rgba := make([]byte, 4*width)
			wideRow(l, src, from, pixel.ModeL, width)
			toRGBA(rgba, l, pixel.ModeL, width, nil)
			fromRGBA(dst, rgba, to, width)
		}
	case isWide(to):
		c.row = func(dst, src []byte, width int, pal *pixel.Palette) {
			rgba := make([]byte, 4*width)
			l := make([]byte, width)
			toRGBA(rgba, src, from, width, pal)
			fromRGBA(l, rgba, pixel.ModeL, width)
			wideRow(dst, l, pixel.ModeL, to, width)
		}
	default:
		c.row = func(dst, src []byte, width int, pal *pixel.Palette) {
			rgba := make([]byte, 4*width)
			toRGBA(rgba, src, from, width, pal)
			fromRGBA(dst, rgba, to, width)
		}
	}
	return c, nil
}

// Apply converts src into a new buffer. The mode of src must equal From.
func (c *Converter) Apply(src *pixel.Buffer) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("convert: nil buffer: %w", pixel.ErrInvalidArgument)
	}
	if src.Mode() != c.From {
		return nil, fmt.Errorf("convert: %s converter given %s buffer: %w", c.From, src.Mode(), pixel.ErrInvalidArgument)
	}
	dst, err := pixel.Allocate(c.To, src.Width(), src.Height())
	if err != nil {
		return nil, err
	}
	pal := src.Palette()
	for y := range src.Height() {
		c.row(dst.Row(y), src.Row(y), src.Width(), pal)
	}
	if c.To.IsIndexed() {
		p := webPalette
		if c.keepPalette {
			p = pal
		}
		if err := dst.SetPalette(p); err != nil {
			return nil, err
		}
	}
	logging.Logger().Debug("convert", "from", c.From, "to", c.To,
		"width", src.Width(), "height", src.Height())
	return dst, nil
}

// Convert returns src transcoded to target as a new buffer. Converting to the
// current mode returns an equal copy.
func Convert(src *pixel.Buffer, target pixel.Mode) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("convert: nil buffer: %w", pixel.ErrInvalidArgument)
	}
	c, err := Lookup(src.Mode(), target)
	if err != nil {
		return nil, err
	}
	return c.Apply(src)
}
