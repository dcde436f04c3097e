package ops

import (
	"fmt"
	"math"

	"github.com/gogpu/imaging/pixel"
)

// sameShape checks that a and b can be combined sample by sample.
func sameShape(op string, a, b *pixel.Buffer) error {
	if a == nil || b == nil {
		return fmt.Errorf("ops: %s nil buffer: %w", op, pixel.ErrInvalidArgument)
	}
	if a.Mode() != b.Mode() {
		return fmt.Errorf("ops: %s %s with %s: %w", op, a.Mode(), b.Mode(), pixel.ErrInvalidArgument)
	}
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return fmt.Errorf("ops: %s %dx%d with %dx%d: %w", op, a.Width(), a.Height(), b.Width(), b.Height(), pixel.ErrInvalidArgument)
	}
	return nil
}

// continuous reports whether samples of mode can be interpolated.
func continuous(mode pixel.Mode) bool {
	return mode.Is8Bit() && !mode.IsIndexed()
}

// Blend returns a*(1-alpha) + b*alpha per sample, clamped to 0..255. An
// alpha outside 0..1 extrapolates.
func Blend(a, b *pixel.Buffer, alpha float64) (*pixel.Buffer, error) {
	if err := sameShape("blend", a, b); err != nil {
		return nil, err
	}
	if !continuous(a.Mode()) {
		return nil, fmt.Errorf("ops: blend %s buffers: %w", a.Mode(), pixel.ErrInvalidArgument)
	}
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("ops: blend alpha %v: %w", alpha, pixel.ErrInvalidArgument)
	}
	dst := a.Clone()
	switch alpha {
	case 0:
		return dst, nil
	case 1:
		return b.Clone(), nil
	}
	for y := range dst.Height() {
		out, in := dst.Row(y), b.Row(y)
		for i, v := range out {
			f := float64(v) + alpha*(float64(in[i])-float64(v))
			out[i] = byte(math.Round(max(0, min(255, f))))
		}
	}
	return dst, nil
}

// Composite returns a with b pasted over it through mask, which must have
// their size and be of a mode pixel.Paste accepts for masks.
func Composite(a, b, mask *pixel.Buffer) (*pixel.Buffer, error) {
	if err := sameShape("composite", a, b); err != nil {
		return nil, err
	}
	if mask == nil || mask.Width() != a.Width() || mask.Height() != a.Height() {
		return nil, fmt.Errorf("ops: composite mask does not match %dx%d: %w", a.Width(), a.Height(), pixel.ErrInvalidArgument)
	}
	dst := a.Clone()
	if err := pixel.Paste(dst, b, pixel.Point{}, mask); err != nil {
		return nil, err
	}
	return dst, nil
}
