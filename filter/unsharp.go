package filter

import (
	"fmt"

	"github.com/gogpu/imaging/pixel"
)

// UnsharpMask sharpens src by adding back the difference between src and
// its Gaussian blur of the given radius, scaled by percent. Samples whose
// difference is below threshold are left alone.
func UnsharpMask(src *pixel.Buffer, radius float64, percent, threshold int) (*pixel.Buffer, error) {
	if err := checkMode("unsharp mask", src); err != nil {
		return nil, err
	}
	if err := checkRadius("unsharp mask", radius); err != nil {
		return nil, err
	}
	if percent < 0 || threshold < 0 {
		return nil, fmt.Errorf("filter: unsharp mask percent %d threshold %d: %w", percent, threshold, pixel.ErrInvalidArgument)
	}
	k := CachedGaussianKernel(radius)
	dst := separable(src, k, k)
	for y := range src.Height() {
		in, out := src.Row(y), dst.Row(y)
		for i, s := range in {
			diff := int(s) - int(out[i])
			if diff >= threshold || -diff >= threshold {
				out[i] = clampUint8(float32(s) + float32(diff*percent)/100)
			} else {
				out[i] = s
			}
		}
	}
	return dst, nil
}
