package ops

import (
	"fmt"

	"github.com/gogpu/imaging/pixel"
)

// Channel selects a per-sample operation for Combine.
type Channel uint8

const (
	Multiply   Channel = iota // a*b/255
	Screen                    // 255 - (255-a)*(255-b)/255
	Overlay                   // Multiply or Screen by a, doubled
	Darker                    // min(a, b)
	Lighter                   // max(a, b)
	Difference                // |a-b|
	Add                       // a+b, clamped
	Subtract                  // a-b, clamped
)

func (c Channel) String() string {
	switch c {
	case Multiply:
		return "multiply"
	case Screen:
		return "screen"
	case Overlay:
		return "overlay"
	case Darker:
		return "darker"
	case Lighter:
		return "lighter"
	case Difference:
		return "difference"
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	}
	return fmt.Sprintf("Channel(%d)", c)
}

func (c Channel) fn() func(a, b byte) byte {
	switch c {
	case Multiply:
		return mulDiv255
	case Screen:
		return screen
	case Overlay:
		return overlay
	case Darker:
		return func(a, b byte) byte { return min(a, b) }
	case Lighter:
		return func(a, b byte) byte { return max(a, b) }
	case Difference:
		return func(a, b byte) byte {
			if a > b {
				return a - b
			}
			return b - a
		}
	case Add:
		return func(a, b byte) byte { return byte(min(int(a)+int(b), 255)) }
	case Subtract:
		return func(a, b byte) byte { return byte(max(int(a)-int(b), 0)) }
	}
	return nil
}

// Combine applies c to every pair of samples of a and b, alpha included.
func Combine(a, b *pixel.Buffer, c Channel) (*pixel.Buffer, error) {
	if err := sameShape(c.String(), a, b); err != nil {
		return nil, err
	}
	if !continuous(a.Mode()) {
		return nil, fmt.Errorf("ops: %s of %s buffers: %w", c, a.Mode(), pixel.ErrInvalidArgument)
	}
	f := c.fn()
	if f == nil {
		return nil, fmt.Errorf("ops: %s: %w", c, pixel.ErrInvalidArgument)
	}
	dst := a.Clone()
	for y := range dst.Height() {
		out, in := dst.Row(y), b.Row(y)
		for i, v := range out {
			out[i] = f(v, in[i])
		}
	}
	return dst, nil
}

// mulDiv255 returns a*b/255 rounded to nearest.
func mulDiv255(a, b byte) byte {
	t := uint16(a)*uint16(b) + 128
	return byte((t + t>>8) >> 8)
}

func screen(a, b byte) byte {
	return 255 - mulDiv255(255-a, 255-b)
}

func overlay(a, b byte) byte {
	if a < 128 {
		return byte(min((2*int(a)*int(b)+127)/255, 255))
	}
	return byte(255 - min((2*(255-int(a))*(255-int(b))+127)/255, 255))
}
