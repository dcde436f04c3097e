package filter

import (
	"fmt"
	"math"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// checkMode rejects buffers the filters cannot process.
func checkMode(op string, buf *pixel.Buffer) error {
	if buf == nil {
		return fmt.Errorf("filter: %s of nil buffer: %w", op, pixel.ErrInvalidArgument)
	}
	switch buf.Mode() {
	case pixel.ModeL, pixel.ModeLA, pixel.ModeRGB, pixel.ModeRGBA, pixel.ModeCMYK:
		return nil
	}
	return fmt.Errorf("filter: %s of %s buffer: %w", op, buf.Mode(), pixel.ErrInvalidArgument)
}

func checkRadius(op string, radius float64) error {
	if radius < 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return fmt.Errorf("filter: %s radius %v: %w", op, radius, pixel.ErrInvalidArgument)
	}
	return nil
}

// BoxBlur returns src blurred by averaging each pixel with its neighbors
// within radius in both directions. radius may be fractional.
func BoxBlur(src *pixel.Buffer, radius float64) (*pixel.Buffer, error) {
	if err := checkMode("box blur", src); err != nil {
		return nil, err
	}
	if err := checkRadius("box blur", radius); err != nil {
		return nil, err
	}
	logging.Logger().Debug("filter: box blur", "mode", src.Mode(), "radius", radius)
	k := BoxKernel(radius)
	return separable(src, k, k), nil
}

// GaussianBlur returns src convolved with a Gaussian of standard deviation
// radius.
func GaussianBlur(src *pixel.Buffer, radius float64) (*pixel.Buffer, error) {
	if err := checkMode("gaussian blur", src); err != nil {
		return nil, err
	}
	if err := checkRadius("gaussian blur", radius); err != nil {
		return nil, err
	}
	logging.Logger().Debug("filter: gaussian blur", "mode", src.Mode(), "radius", radius)
	k := CachedGaussianKernel(radius)
	return separable(src, k, k), nil
}

// separable convolves each band of src with kx along rows, then with ky
// along columns. The horizontal pass keeps float32 sums so the result is
// rounded once.
func separable(src *pixel.Buffer, kx, ky []float32) *pixel.Buffer {
	dst := src.Clone()
	if len(kx) == 1 && len(ky) == 1 {
		return dst
	}
	width, height := src.Width(), src.Height()
	bands := src.Mode().Bands()
	rowLen := width * bands
	temp := make([]float32, rowLen*height)

	blurHorizontal(src, temp, kx)
	blurVertical(temp, dst, ky)
	return dst
}

// blurHorizontal convolves the rows of src into temp.
func blurHorizontal(src *pixel.Buffer, temp []float32, kernel []float32) {
	width, bands := src.Width(), src.Mode().Bands()
	half := len(kernel) / 2
	rowLen := width * bands

	for y := range src.Height() {
		row := src.Row(y)
		out := temp[y*rowLen : (y+1)*rowLen]
		for x := range width {
			for b := range bands {
				var sum float32
				for k, weight := range kernel {
					kx := clampInt(x+k-half, 0, width-1)
					sum += float32(row[kx*bands+b]) * weight
				}
				out[x*bands+b] = sum
			}
		}
	}
}

// blurVertical convolves the columns of temp into dst.
func blurVertical(temp []float32, dst *pixel.Buffer, kernel []float32) {
	height := dst.Height()
	half := len(kernel) / 2
	rowLen := dst.Width() * dst.Mode().Bands()

	for y := range height {
		out := dst.Row(y)
		for i := range rowLen {
			var sum float32
			for k, weight := range kernel {
				ky := clampInt(y+k-half, 0, height-1)
				sum += temp[ky*rowLen+i] * weight
			}
			out[i] = clampUint8(sum)
		}
	}
}

// clampInt clamps v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampUint8 clamps v to [0, 255] and rounds to nearest.
func clampUint8(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
