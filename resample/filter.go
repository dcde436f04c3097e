package resample

import (
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Filter is a separable resampling kernel. Weight is evaluated at distances
// measured in source pixels at scale 1; it must be zero beyond Support.
// Filters are stateless and safe for concurrent use.
type Filter struct {
	Name    string
	Support float64
	Weight  func(x float64) float64
}

// fromKernel adapts an x/image/draw kernel, which is only defined for
// 0 <= t < Support.
func fromKernel(name string, k *draw.Kernel) *Filter {
	return &Filter{
		Name:    name,
		Support: k.Support,
		Weight: func(x float64) float64 {
			x = math.Abs(x)
			if x >= k.Support {
				return 0
			}
			return k.At(x)
		},
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	x *= math.Pi
	return math.Sin(x) / x
}

// Built-in filters.
var (
	// Nearest picks the source pixel under the output pixel center. It is the
	// only filter accepted for 1, P and PA buffers.
	Nearest = &Filter{
		Name:    "nearest",
		Support: 0.5,
		Weight: func(x float64) float64 {
			if x > -0.5 && x <= 0.5 {
				return 1
			}
			return 0
		},
	}

	// Box averages every source pixel covered by the output pixel.
	Box = &Filter{
		Name:    "box",
		Support: 0.5,
		Weight: func(x float64) float64 {
			if x > -0.5 && x <= 0.5 {
				return 1
			}
			return 0
		},
	}

	// Bilinear is the triangle filter.
	Bilinear = fromKernel("bilinear", draw.BiLinear)

	// Hamming is a sinc windowed by the Hamming function.
	Hamming = &Filter{
		Name:    "hamming",
		Support: 1,
		Weight: func(x float64) float64 {
			x = math.Abs(x)
			if x >= 1 {
				return 0
			}
			return sinc(x) * (0.54 + 0.46*math.Cos(math.Pi*x))
		},
	}

	// Bicubic is the Catmull-Rom cubic (a = -0.5).
	Bicubic = fromKernel("bicubic", draw.CatmullRom)

	// Lanczos is the three-lobed Lanczos windowed sinc.
	Lanczos = &Filter{
		Name:    "lanczos",
		Support: 3,
		Weight: func(x float64) float64 {
			if x <= -3 || x >= 3 {
				return 0
			}
			return sinc(x) * sinc(x/3)
		},
	}
)

var builtins = []*Filter{Nearest, Box, Bilinear, Hamming, Bicubic, Lanczos}

// Filters returns the built-in filters in order of increasing support.
func Filters() []*Filter {
	return append([]*Filter(nil), builtins...)
}

// FilterByName looks up a built-in filter, ignoring case. "triangle",
// "antialias" and "catmullrom" are accepted as aliases.
func FilterByName(name string) (*Filter, bool) {
	switch n := strings.ToLower(name); n {
	case "triangle", "linear":
		return Bilinear, true
	case "catmullrom", "cubic":
		return Bicubic, true
	case "antialias":
		return Lanczos, true
	default:
		for _, f := range builtins {
			if f.Name == n {
				return f, true
			}
		}
	}
	return nil, false
}
