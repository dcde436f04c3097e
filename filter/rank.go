package filter

import (
	"fmt"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// maxRankSize bounds the window side of rank filters.
const maxRankSize = 255

// Rank returns src with every sample replaced by the value of the given
// rank among the size×size window around it, ranks counting from the
// smallest at zero. size must be odd.
func Rank(src *pixel.Buffer, size, rank int) (*pixel.Buffer, error) {
	if err := checkMode("rank filter", src); err != nil {
		return nil, err
	}
	if size < 1 || size%2 == 0 || size > maxRankSize {
		return nil, fmt.Errorf("filter: rank filter size %d: %w", size, pixel.ErrInvalidArgument)
	}
	if rank < 0 || rank >= size*size {
		return nil, fmt.Errorf("filter: rank %d for size %d: %w", rank, size, pixel.ErrInvalidArgument)
	}
	logging.Logger().Debug("filter: rank", "mode", src.Mode(), "size", size, "rank", rank)

	dst := src.Clone()
	width, height := src.Width(), src.Height()
	bands := src.Mode().Bands()
	half := size / 2
	var hist [256]int
	for y := range height {
		out := dst.Row(y)
		for x := range width {
			for b := range bands {
				clear(hist[:])
				for j := range size {
					row := src.Row(clampInt(y+j-half, 0, height-1))
					for i := range size {
						hist[row[clampInt(x+i-half, 0, width-1)*bands+b]]++
					}
				}
				out[x*bands+b] = nth(&hist, rank)
			}
		}
	}
	return dst, nil
}

// nth returns the value of the sample at position n in sorted order.
func nth(hist *[256]int, n int) byte {
	for v, c := range hist {
		if n < c {
			return byte(v)
		}
		n -= c
	}
	return 255
}

// Median returns src with each sample replaced by the median of its
// size×size window.
func Median(src *pixel.Buffer, size int) (*pixel.Buffer, error) {
	return Rank(src, size, size*size/2)
}

// Min returns src with each sample replaced by the smallest value in its
// size×size window.
func Min(src *pixel.Buffer, size int) (*pixel.Buffer, error) {
	return Rank(src, size, 0)
}

// Max returns src with each sample replaced by the largest value in its
// size×size window.
func Max(src *pixel.Buffer, size int) (*pixel.Buffer, error) {
	return Rank(src, size, size*size-1)
}
