package ops

import (
	"fmt"

	"github.com/gogpu/imaging/pixel"
)

// Method selects a flip or quarter turn.
type Method uint8

const (
	FlipLeftRight Method = iota
	FlipTopBottom
	Rotate90 // counterclockwise
	Rotate180
	Rotate270 // clockwise
	Transpose
	Transverse
)

var methodNames = [...]string{
	FlipLeftRight: "FlipLeftRight",
	FlipTopBottom: "FlipTopBottom",
	Rotate90:      "Rotate90",
	Rotate180:     "Rotate180",
	Rotate270:     "Rotate270",
	Transpose:     "Transpose",
	Transverse:    "Transverse",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", m)
}

// swapsAxes reports whether the result is height×width.
func (m Method) swapsAxes() bool {
	switch m {
	case Rotate90, Rotate270, Transpose, Transverse:
		return true
	}
	return false
}

// source maps a destination pixel to the source pixel it copies from.
func (m Method) source(x, y, w, h int) (int, int) {
	switch m {
	case FlipLeftRight:
		return w - 1 - x, y
	case FlipTopBottom:
		return x, h - 1 - y
	case Rotate90:
		return w - 1 - y, x
	case Rotate180:
		return w - 1 - x, h - 1 - y
	case Rotate270:
		return y, h - 1 - x
	case Transpose:
		return y, x
	default:
		return w - 1 - y, h - 1 - x
	}
}

// Transform returns src flipped or rotated by m. The palette is kept.
func Transform(src *pixel.Buffer, m Method) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("ops: transform nil buffer: %w", pixel.ErrInvalidArgument)
	}
	if int(m) >= len(methodNames) {
		return nil, fmt.Errorf("ops: transform %s: %w", m, pixel.ErrInvalidArgument)
	}
	w, h := src.Width(), src.Height()
	dw, dh := w, h
	if m.swapsAxes() {
		dw, dh = h, w
	}
	dst, err := pixel.Allocate(src.Mode(), dw, dh)
	if err != nil {
		return nil, err
	}
	if pal := src.Palette(); pal != nil {
		if err := dst.SetPalette(pal); err != nil {
			return nil, err
		}
	}

	mode1 := src.Mode() == pixel.Mode1
	n := src.Mode().BytesPerPixel()
	for y := range dh {
		out := dst.Row(y)
		for x := range dw {
			sx, sy := m.source(x, y, w, h)
			in := src.Row(sy)
			if mode1 {
				pixel.PutBit(out, x, pixel.GetBit(in, sx))
				continue
			}
			copy(out[x*n:(x+1)*n], in[sx*n:])
		}
	}
	return dst, nil
}
