package filter

import (
	"fmt"
	"math"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// Kernel is a square convolution kernel. Each output sample is the weighted
// sum of its neighborhood divided by Scale, plus Offset.
type Kernel struct {
	// Size is the side length, 3 or 5.
	Size int
	// Weights holds Size*Size values in row-major order, top row first.
	Weights []float64
	// Scale divides the weighted sum. Zero selects the sum of the weights,
	// or 1 when they sum to zero.
	Scale  float64
	Offset float64
}

// Blur averages the outer ring of a 5×5 window.
var Blur = Kernel{Size: 5, Scale: 16, Weights: []float64{
	1, 1, 1, 1, 1,
	1, 0, 0, 0, 1,
	1, 0, 0, 0, 1,
	1, 0, 0, 0, 1,
	1, 1, 1, 1, 1,
}}

// Contour draws edges dark on a white background.
var Contour = Kernel{Size: 3, Scale: 1, Offset: 255, Weights: []float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}}

// Detail mildly sharpens.
var Detail = Kernel{Size: 3, Scale: 6, Weights: []float64{
	0, -1, 0,
	-1, 10, -1,
	0, -1, 0,
}}

// EdgeEnhance boosts edges.
var EdgeEnhance = Kernel{Size: 3, Scale: 2, Weights: []float64{
	-1, -1, -1,
	-1, 10, -1,
	-1, -1, -1,
}}

// EdgeEnhanceMore boosts edges harder than EdgeEnhance.
var EdgeEnhanceMore = Kernel{Size: 3, Scale: 1, Weights: []float64{
	-1, -1, -1,
	-1, 9, -1,
	-1, -1, -1,
}}

// Emboss gives a relief effect around mid gray.
var Emboss = Kernel{Size: 3, Scale: 1, Offset: 128, Weights: []float64{
	-1, 0, 0,
	0, 1, 0,
	0, 0, 0,
}}

// FindEdges keeps only edges.
var FindEdges = Kernel{Size: 3, Scale: 1, Weights: []float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}}

// Sharpen sharpens.
var Sharpen = Kernel{Size: 3, Scale: 16, Weights: []float64{
	-2, -2, -2,
	-2, 32, -2,
	-2, -2, -2,
}}

// Smooth is a light 3×3 blur weighted toward the center.
var Smooth = Kernel{Size: 3, Scale: 13, Weights: []float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}}

// SmoothMore is a 5×5 version of Smooth.
var SmoothMore = Kernel{Size: 5, Scale: 100, Weights: []float64{
	1, 1, 1, 1, 1,
	1, 5, 5, 5, 1,
	1, 5, 44, 5, 1,
	1, 5, 5, 5, 1,
	1, 1, 1, 1, 1,
}}

// scale returns the effective divisor.
func (k Kernel) scale() float64 {
	if k.Scale != 0 {
		return k.Scale
	}
	var sum float64
	for _, w := range k.Weights {
		sum += w
	}
	if sum == 0 {
		return 1
	}
	return sum
}

func (k Kernel) validate() error {
	if k.Size != 3 && k.Size != 5 {
		return fmt.Errorf("filter: kernel size %d: %w", k.Size, pixel.ErrInvalidArgument)
	}
	if len(k.Weights) != k.Size*k.Size {
		return fmt.Errorf("filter: %dx%d kernel with %d weights: %w", k.Size, k.Size, len(k.Weights), pixel.ErrInvalidArgument)
	}
	for _, v := range append([]float64{k.Scale, k.Offset}, k.Weights...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("filter: kernel value %v: %w", v, pixel.ErrInvalidArgument)
		}
	}
	return nil
}

// Convolve returns src convolved with k.
func Convolve(src *pixel.Buffer, k Kernel) (*pixel.Buffer, error) {
	if err := checkMode("convolve", src); err != nil {
		return nil, err
	}
	if err := k.validate(); err != nil {
		return nil, err
	}
	scale := k.scale()
	logging.Logger().Debug("filter: convolve", "mode", src.Mode(), "size", k.Size, "scale", scale)

	dst := src.Clone()
	width, height := src.Width(), src.Height()
	bands := src.Mode().Bands()
	half := k.Size / 2
	for y := range height {
		out := dst.Row(y)
		for x := range width {
			for b := range bands {
				var sum float64
				for j := range k.Size {
					row := src.Row(clampInt(y+j-half, 0, height-1))
					for i := range k.Size {
						sx := clampInt(x+i-half, 0, width-1)
						sum += float64(row[sx*bands+b]) * k.Weights[j*k.Size+i]
					}
				}
				out[x*bands+b] = clampUint8(float32(sum/scale + k.Offset))
			}
		}
	}
	return dst, nil
}
