package ops

import (
	"fmt"
	"math"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// Affine is a 2D affine transformation:
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the transformation that changes nothing.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translation shifts points by (tx, ty).
func Translation(tx, ty float64) Affine {
	return Affine{A: 1, C: tx, E: 1, F: ty}
}

// Scaling scales by (sx, sy) around the origin. Negative factors flip.
func Scaling(sx, sy float64) Affine {
	return Affine{A: sx, E: sy}
}

// Rotation rotates by angle radians around the origin.
func Rotation(angle float64) Affine {
	cos, sin := math.Cos(angle), math.Sin(angle)
	return Affine{A: cos, B: -sin, D: sin, E: cos}
}

// Shearing skews along x by sx and along y by sy.
func Shearing(sx, sy float64) Affine {
	return Affine{A: 1, B: sx, D: sy, E: 1}
}

// Multiply returns a*o, which applies o first and then a.
func (a Affine) Multiply(o Affine) Affine {
	return Affine{
		A: a.A*o.A + a.B*o.D,
		B: a.A*o.B + a.B*o.E,
		C: a.A*o.C + a.B*o.F + a.C,
		D: a.D*o.A + a.E*o.D,
		E: a.D*o.B + a.E*o.E,
		F: a.D*o.C + a.E*o.F + a.F,
	}
}

// Invert returns the inverse transformation, or false when a is singular.
func (a Affine) Invert() (Affine, bool) {
	det := a.A*a.E - a.B*a.D
	if math.Abs(det) < 1e-10 {
		return Affine{}, false
	}
	inv := 1.0 / det
	return Affine{
		A: a.E * inv,
		B: -a.B * inv,
		C: (a.B*a.F - a.C*a.E) * inv,
		D: -a.D * inv,
		E: a.A * inv,
		F: (a.C*a.D - a.A*a.F) * inv,
	}, true
}

// Apply transforms the point (x, y).
func (a Affine) Apply(x, y float64) (float64, float64) {
	return a.A*x + a.B*y + a.C, a.D*x + a.E*y + a.F
}

func (a Affine) finite() bool {
	for _, v := range [...]float64{a.A, a.B, a.C, a.D, a.E, a.F} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Sampling selects how transformed pixels are read from the source.
type Sampling uint8

const (
	// Nearest takes the source pixel under the sample point.
	Nearest Sampling = iota
	// Bilinear interpolates the four source pixels around the sample
	// point. It needs a mode whose samples can be interpolated.
	Bilinear
)

func (s Sampling) String() string {
	switch s {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	}
	return fmt.Sprintf("Sampling(%d)", s)
}

// AffineTransform returns a width×height buffer whose pixel centers are
// mapped through m into src coordinates, so m is the output-to-input
// transformation. Pixels that map outside src are set to fill.
func AffineTransform(src *pixel.Buffer, width, height int, m Affine, s Sampling, fill pixel.Pixel) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("ops: transform nil buffer: %w", pixel.ErrInvalidArgument)
	}
	if !m.finite() {
		return nil, fmt.Errorf("ops: transform matrix %+v: %w", m, pixel.ErrInvalidArgument)
	}
	switch s {
	case Nearest:
	case Bilinear:
		if !continuous(src.Mode()) {
			return nil, fmt.Errorf("ops: %s sampling of %s buffer: %w", s, src.Mode(), pixel.ErrInvalidArgument)
		}
	default:
		return nil, fmt.Errorf("ops: %s: %w", s, pixel.ErrInvalidArgument)
	}
	if err := src.CheckPixel(fill); err != nil {
		return nil, err
	}
	dst, err := pixel.Allocate(src.Mode(), width, height)
	if err != nil {
		return nil, err
	}
	if pal := src.Palette(); pal != nil {
		if err := dst.SetPalette(pal); err != nil {
			return nil, err
		}
	}
	if err := dst.Fill(fill); err != nil {
		return nil, err
	}

	w, h := float64(src.Width()), float64(src.Height())
	for y := range height {
		for x := range width {
			ix, iy := m.Apply(float64(x)+0.5, float64(y)+0.5)
			if !(ix >= 0 && ix < w && iy >= 0 && iy < h) {
				continue
			}
			var p pixel.Pixel
			if s == Bilinear {
				p = sampleBilinear(src, ix, iy)
			} else {
				p = src.At(int(ix), int(iy))
			}
			if err := dst.SetPixel(x, y, p); err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

// sampleBilinear interpolates the pixels whose centers surround (fx, fy),
// replicating edge pixels.
func sampleBilinear(src *pixel.Buffer, fx, fy float64) pixel.Pixel {
	fx -= 0.5
	fy -= 0.5
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	tx, ty := fx-float64(x0), fy-float64(y0)
	w, h := src.Width(), src.Height()
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	x0, y0 = max(x0, 0), max(y0, 0)

	p00, p10 := src.At(x0, y0), src.At(x1, y0)
	p01, p11 := src.At(x0, y1), src.At(x1, y1)
	var p pixel.Pixel
	for b := range src.Mode().Bands() {
		top := p00[b] + (p10[b]-p00[b])*tx
		bot := p01[b] + (p11[b]-p01[b])*tx
		p[b] = math.Round(top + (bot-top)*ty)
	}
	return p
}

// Rotate returns src rotated counterclockwise by degrees around its center.
// With expand the result grows to hold the whole rotated image; otherwise
// it keeps src's size. Uncovered pixels are set to fill.
func Rotate(src *pixel.Buffer, degrees float64, expand bool, s Sampling, fill pixel.Pixel) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("ops: rotate nil buffer: %w", pixel.ErrInvalidArgument)
	}
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return nil, fmt.Errorf("ops: rotate by %v degrees: %w", degrees, pixel.ErrInvalidArgument)
	}
	if err := src.CheckPixel(fill); err != nil {
		return nil, err
	}
	degrees = math.Mod(degrees, 360)
	if degrees < 0 {
		degrees += 360
	}
	switch {
	case degrees == 0:
		return src.Clone(), nil
	case degrees == 180:
		return Transform(src, Rotate180)
	case expand && degrees == 90:
		return Transform(src, Rotate90)
	case expand && degrees == 270:
		return Transform(src, Rotate270)
	}

	angle := degrees * math.Pi / 180
	w, h := float64(src.Width()), float64(src.Height())
	ow, oh := src.Width(), src.Height()
	if expand {
		cos, sin := math.Abs(math.Cos(angle)), math.Abs(math.Sin(angle))
		ow = int(math.Ceil(w*cos + h*sin - 1e-9))
		oh = int(math.Ceil(w*sin + h*cos - 1e-9))
	}
	// Output to input: move the output center to the origin, turn, then
	// move to the input center.
	m := Translation(w/2, h/2).
		Multiply(Rotation(angle)).
		Multiply(Translation(-float64(ow)/2, -float64(oh)/2))
	logging.Logger().Debug("ops: rotate", "degrees", degrees, "expand", expand,
		"from", fmt.Sprintf("%dx%d", src.Width(), src.Height()), "to", fmt.Sprintf("%dx%d", ow, oh))
	return AffineTransform(src, ow, oh, m, s, fill)
}
