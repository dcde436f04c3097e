package text

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// Extent describes the area a string covers when drawn at the origin.
type Extent struct {
	// Bounds is the inked rectangle relative to the dot; Y grows downward
	// and the baseline is at zero.
	Bounds pixel.Rect
	// Advance is how far the dot moves, in pixels.
	Advance float64
}

// Measure returns the extent of s drawn with face.
func Measure(face font.Face, s string) Extent {
	b, adv := font.BoundString(face, s)
	return Extent{Bounds: pixelRect(b), Advance: fixedToFloat64(adv)}
}

func pixelRect(b fixed.Rectangle26_6) pixel.Rect {
	x0, y0 := b.Min.X.Floor(), b.Min.Y.Floor()
	x1, y1 := b.Max.X.Ceil(), b.Max.Y.Ceil()
	if x1 <= x0 || y1 <= y0 {
		return pixel.Rect{}
	}
	return pixel.R(x0, y0, x1-x0, y1-y0)
}

// Mask rasterizes s into an L coverage buffer. at is the position of the
// mask's top-left corner relative to the dot.
func Mask(face font.Face, s string) (mask *pixel.Buffer, at pixel.Point, err error) {
	if face == nil {
		return nil, pixel.Point{}, fmt.Errorf("text: nil face: %w", pixel.ErrInvalidArgument)
	}
	r := Measure(face, s).Bounds
	if r.Empty() {
		return nil, pixel.Point{}, nil
	}
	alpha := image.NewAlpha(image.Rect(0, 0, r.Width, r.Height))
	d := &font.Drawer{
		Dst:  alpha,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(-r.X, -r.Y),
	}
	d.DrawString(s)
	mask, err = pixel.FromBytes(pixel.ModeL, r.Width, r.Height, alpha.Pix)
	if err != nil {
		return nil, pixel.Point{}, err
	}
	return mask, pixel.Pt(r.X, r.Y), nil
}

// Draw renders s onto dst in the solid color ink, with the left end of the
// baseline at dot. ink must be valid for dst's mode. Draw returns the dot
// after the last glyph; glyphs falling outside dst are clipped.
func Draw(dst *pixel.Buffer, face font.Face, dot pixel.Point, s string, ink pixel.Pixel) (pixel.Point, error) {
	if dst == nil {
		return dot, fmt.Errorf("text: draw onto nil buffer: %w", pixel.ErrInvalidArgument)
	}
	if err := dst.CheckPixel(ink); err != nil {
		return dot, err
	}
	mask, at, err := Mask(face, s)
	if err != nil {
		return dot, err
	}
	_, adv := font.BoundString(face, s)
	next := pixel.Pt(dot.X+adv.Round(), dot.Y)
	if mask == nil {
		return next, nil
	}
	logging.Logger().Debug("text: draw", "runes", len([]rune(s)),
		"mask", fmt.Sprintf("%dx%d", mask.Width(), mask.Height()), "at", dot)
	if err := pixel.FillMask(dst, ink, pixel.Pt(dot.X+at.X, dot.Y+at.Y), mask); err != nil {
		return dot, err
	}
	return next, nil
}
