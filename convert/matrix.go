package convert

import (
	"fmt"
	"math"

	"github.com/gogpu/imaging/pixel"
)

// Matrix is a 4x5 color transform applied to straight RGBA samples in the
// 0..255 range:
//
//	[R']   [a00 a01 a02 a03 a04]   [R]
//	[G'] = [a10 a11 a12 a13 a14] * [G]
//	[B']   [a20 a21 a22 a23 a24]   [B]
//	[A']   [a30 a31 a32 a33 a34]   [A]
//	                               [1]
//
// The fifth column holds offsets.
type Matrix [20]float64

// IdentityMatrix passes colors through unchanged.
func IdentityMatrix() Matrix {
	return Matrix{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// BrightnessMatrix scales color channels: 0 is black, 1 unchanged.
func BrightnessMatrix(factor float64) Matrix {
	return Matrix{
		factor, 0, 0, 0, 0,
		0, factor, 0, 0, 0,
		0, 0, factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// ContrastMatrix scales colors around mid-gray: 0 is flat gray, 1 unchanged.
func ContrastMatrix(factor float64) Matrix {
	offset := 128 * (1 - factor)
	return Matrix{
		factor, 0, 0, 0, offset,
		0, factor, 0, 0, offset,
		0, 0, factor, 0, offset,
		0, 0, 0, 1, 0,
	}
}

// SaturationMatrix blends between luma (0) and the original color (1),
// using the same BT.601 weights as the RGB to L conversion.
func SaturationMatrix(factor float64) Matrix {
	const (
		wr = lumaR / 65536.0
		wg = lumaG / 65536.0
		wb = lumaB / 65536.0
	)
	inv := 1 - factor
	return Matrix{
		wr*inv + factor, wg * inv, wb * inv, 0, 0,
		wr * inv, wg*inv + factor, wb * inv, 0, 0,
		wr * inv, wg * inv, wb*inv + factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// SepiaMatrix applies a sepia tone.
func SepiaMatrix() Matrix {
	return Matrix{
		0.393, 0.769, 0.189, 0, 0,
		0.349, 0.686, 0.168, 0, 0,
		0.272, 0.534, 0.131, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// InvertMatrix negates the color channels and keeps alpha.
func InvertMatrix() Matrix {
	return Matrix{
		-1, 0, 0, 0, 255,
		0, -1, 0, 0, 255,
		0, 0, -1, 0, 255,
		0, 0, 0, 1, 0,
	}
}

// NewMatrix builds a matrix from a flat coefficient list. Four coefficients
// (R, G, B, offset) describe a single output band replicated into R, G and B;
// twelve describe three RGB rows with offsets; twenty give the full matrix.
// Alpha passes through unless twenty coefficients are supplied.
func NewMatrix(coeffs []float64) (Matrix, error) {
	m := IdentityMatrix()
	switch len(coeffs) {
	case 4:
		for row := range 3 {
			copy(m[row*5:row*5+3], coeffs[:3])
			m[row*5+3] = 0
			m[row*5+4] = coeffs[3]
		}
	case 12:
		for row := range 3 {
			c := coeffs[row*4:]
			m[row*5], m[row*5+1], m[row*5+2], m[row*5+3], m[row*5+4] = c[0], c[1], c[2], 0, c[3]
		}
	case 20:
		copy(m[:], coeffs)
	default:
		return Matrix{}, fmt.Errorf("convert: %d matrix coefficients: %w", len(coeffs), pixel.ErrInvalidArgument)
	}
	return m, nil
}

// Then returns the transform that applies m first and n second.
func (m Matrix) Then(n Matrix) Matrix {
	var r Matrix
	for row := range 4 {
		for col := range 4 {
			var sum float64
			for k := range 4 {
				sum += n[row*5+k] * m[k*5+col]
			}
			r[row*5+col] = sum
		}
		off := n[row*5+4]
		for k := range 4 {
			off += n[row*5+k] * m[k*5+4]
		}
		r[row*5+4] = off
	}
	return r
}

func (m *Matrix) apply(r, g, b, a float64) (float64, float64, float64, float64) {
	return m[0]*r + m[1]*g + m[2]*b + m[3]*a + m[4],
		m[5]*r + m[6]*g + m[7]*b + m[8]*a + m[9],
		m[10]*r + m[11]*g + m[12]*b + m[13]*a + m[14],
		m[15]*r + m[16]*g + m[17]*b + m[18]*a + m[19]
}

func round8(v float64) byte {
	return byte(roundClamp(v, 0, 255))
}

// ApplyMatrix transforms an RGB or RGBA buffer into target and returns a new
// buffer. target may be L (the first row of m produces the gray value), RGB,
// or RGBA when src is RGBA.
func ApplyMatrix(src *pixel.Buffer, target pixel.Mode, m Matrix) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("convert: nil buffer: %w", pixel.ErrInvalidArgument)
	}
	from := src.Mode()
	if from != pixel.ModeRGB && from != pixel.ModeRGBA {
		return nil, fmt.Errorf("convert: matrix on %s buffer: %w", from, pixel.ErrInvalidArgument)
	}
	switch target {
	case pixel.ModeL, pixel.ModeRGB:
	case pixel.ModeRGBA:
		if from != pixel.ModeRGBA {
			return nil, fmt.Errorf("convert: matrix %s to %s: %w", from, target, pixel.ErrInvalidArgument)
		}
	default:
		return nil, fmt.Errorf("convert: matrix target %s: %w", target, pixel.ErrInvalidArgument)
	}
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("convert: matrix coefficient %v: %w", v, pixel.ErrInvalidArgument)
		}
	}

	dst, err := pixel.Allocate(target, src.Width(), src.Height())
	if err != nil {
		return nil, err
	}
	sn := from.Bands()
	dn := target.Bands()
	for y := range src.Height() {
		s := src.Row(y)
		d := dst.Row(y)
		for x := range src.Width() {
			px := s[x*sn:]
			a := 255.0
			if sn == 4 {
				a = float64(px[3])
			}
			r, g, b, na := m.apply(float64(px[0]), float64(px[1]), float64(px[2]), a)
			o := d[x*dn:]
			o[0] = round8(r)
			if dn >= 3 {
				o[1], o[2] = round8(g), round8(b)
			}
			if dn == 4 {
				o[3] = round8(na)
			}
		}
	}
	return dst, nil
}
