package filter

import (
	"math"

	"github.com/gogpu/imaging/internal/cache"
)

// GaussianKernel generates a 1D Gaussian kernel with standard deviation
// radius. The kernel is normalized so all values sum to 1.0.
//
// The kernel size is 2 * ceil(radius * 3) + 1, which covers three standard
// deviations. For radius <= 0 it returns the identity kernel [1.0].
func GaussianKernel(radius float64) []float32 {
	if radius <= 0 {
		return []float32{1.0}
	}

	halfSize := int(math.Ceil(radius * 3))
	size := halfSize*2 + 1
	kernel := make([]float32, size)

	// exp(-x²/2σ²) without the constant factor; the sum normalizes.
	twoSigmaSq := 2 * radius * radius
	sum := float64(0)
	for i := range size {
		x := float64(i - halfSize)
		val := math.Exp(-(x * x) / twoSigmaSq)
		kernel[i] = float32(val)
		sum += val
	}

	invSum := float32(1.0 / sum)
	for i := range kernel {
		kernel[i] *= invSum
	}
	return kernel
}

// BoxKernel generates a 1D box kernel of the given radius. A fractional
// radius gives the two outermost taps a partial weight, so the kernel
// covers exactly 2*radius+1 pixels.
func BoxKernel(radius float64) []float32 {
	if radius <= 0 {
		return []float32{1.0}
	}

	whole := int(radius)
	frac := float32(radius - float64(whole))
	halfSize := whole
	if frac > 0 {
		halfSize++
	}
	kernel := make([]float32, halfSize*2+1)
	val := 1 / float32(2*radius+1)
	for i := range kernel {
		kernel[i] = val
	}
	if frac > 0 {
		kernel[0] = val * frac
		kernel[len(kernel)-1] = val * frac
	}
	return kernel
}

// gaussianKernels holds Gaussian kernels by the bits of their radius.
var gaussianKernels = cache.New[uint64, []float32](64)

// CachedGaussianKernel returns a shared Gaussian kernel for radius. Callers
// must not modify it.
func CachedGaussianKernel(radius float64) []float32 {
	return gaussianKernels.GetOrCreate(math.Float64bits(radius), func() []float32 {
		return GaussianKernel(radius)
	})
}
