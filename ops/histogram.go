package ops

import (
	"fmt"

	"github.com/gogpu/imaging/pixel"
)

// Histogram counts sample values, 256 bins per band, band after band. Mode1
// pixels land in bins 0 and 255. When mask is non-nil, a Mode1 or L buffer
// of src's size, only pixels where it is non-zero are counted.
func Histogram(src, mask *pixel.Buffer) ([]int, error) {
	if src == nil {
		return nil, fmt.Errorf("ops: histogram of nil buffer: %w", pixel.ErrInvalidArgument)
	}
	mode := src.Mode()
	if mode != pixel.Mode1 && !mode.Is8Bit() {
		return nil, fmt.Errorf("ops: histogram of %s buffer: %w", mode, pixel.ErrInvalidArgument)
	}
	if mask != nil {
		if mask.Mode() != pixel.Mode1 && mask.Mode() != pixel.ModeL {
			return nil, fmt.Errorf("ops: histogram mask mode %s: %w", mask.Mode(), pixel.ErrInvalidArgument)
		}
		if mask.Width() != src.Width() || mask.Height() != src.Height() {
			return nil, fmt.Errorf("ops: histogram mask %dx%d for %dx%d: %w",
				mask.Width(), mask.Height(), src.Width(), src.Height(), pixel.ErrInvalidArgument)
		}
	}

	n := mode.Bands()
	hist := make([]int, 256*n)
	for y := range src.Height() {
		row := src.Row(y)
		for x := range src.Width() {
			if mask != nil && mask.At(x, y)[0] == 0 {
				continue
			}
			if mode == pixel.Mode1 {
				if pixel.GetBit(row, x) {
					hist[255]++
				} else {
					hist[0]++
				}
				continue
			}
			for b := range n {
				hist[b<<8|int(row[x*n+b])]++
			}
		}
	}
	return hist, nil
}

// BBox returns the smallest rectangle holding every non-zero pixel of src.
// For modes with alpha only the alpha band counts. ok is false when every
// pixel is zero.
func BBox(src *pixel.Buffer) (r pixel.Rect, ok bool, err error) {
	if src == nil {
		return pixel.Rect{}, false, fmt.Errorf("ops: bbox of nil buffer: %w", pixel.ErrInvalidArgument)
	}
	mode := src.Mode()
	n := mode.Bands()
	x0, y0, x1, y1 := src.Width(), src.Height(), -1, -1
	for y := range src.Height() {
		for x := range src.Width() {
			p := src.At(x, y)
			set := false
			if mode.HasAlpha() {
				set = p[n-1] != 0
			} else {
				for b := range n {
					set = set || p[b] != 0
				}
			}
			if set {
				x0, y0 = min(x0, x), min(y0, y)
				x1, y1 = max(x1, x), max(y1, y)
			}
		}
	}
	if x1 < 0 {
		return pixel.Rect{}, false, nil
	}
	return pixel.R(x0, y0, x1-x0+1, y1-y0+1), true, nil
}
