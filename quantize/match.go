package quantize

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/gogpu/imaging/pixel"
)

// matcher finds nearest palette entries, caching results per color.
type matcher struct {
	colors []pixel.Color
	lab    [][3]float64
	dims   int
	cache  map[uint32]int
}

func newMatcher(pal *pixel.Palette, dims int, metric Metric) *matcher {
	m := &matcher{colors: pal.Colors(), dims: dims, cache: make(map[uint32]int)}
	if metric == MetricLab {
		m.lab = make([][3]float64, len(m.colors))
		for i, c := range m.colors {
			m.lab[i] = toLab(c)
		}
	}
	return m
}

func toLab(c pixel.Color) [3]float64 {
	l, a, b := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Lab()
	return [3]float64{l, a, b}
}

// nearest returns the index of the closest entry; ties go to the lowest
// index.
func (m *matcher) nearest(c pixel.Color) int {
	if m.dims == 3 {
		c.A = 255
	}
	k := pack(c)
	if i, ok := m.cache[k]; ok {
		return i
	}
	var best int
	if m.lab != nil {
		best = m.nearestLab(c)
	} else {
		best = m.nearestRGB(c)
	}
	m.cache[k] = best
	return best
}

func (m *matcher) nearestRGB(c pixel.Color) int {
	best, bestD := 0, -1
	for i, p := range m.colors {
		dr := int(c.R) - int(p.R)
		dg := int(c.G) - int(p.G)
		db := int(c.B) - int(p.B)
		d := dr*dr + dg*dg + db*db
		if m.dims == 4 {
			da := int(c.A) - int(p.A)
			d += da * da
		}
		if bestD < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func (m *matcher) nearestLab(c pixel.Color) int {
	q := toLab(c)
	best, bestD := 0, -1.0
	for i, p := range m.lab {
		dl, da, db := q[0]-p[0], q[1]-p[1], q[2]-p[2]
		d := dl*dl + da*da + db*db
		if m.dims == 4 {
			dA := float64(int(c.A)-int(m.colors[i].A)) / 255
			d += dA * dA
		}
		if bestD < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// ditherFloydSteinberg maps src into dst, diffusing the quantization error of
// each pixel to its unvisited neighbors with weights 7/16, 3/16, 5/16, 1/16.
func ditherFloydSteinberg(src *source, dst *pixel.Buffer, m *matcher) {
	w := src.buf.Width()
	cur := make([][4]float64, w+2)
	next := make([][4]float64, w+2)
	for y := range src.buf.Height() {
		row := src.buf.Row(y)
		out := dst.Row(y)
		for x := range w {
			c := src.at(x, row)
			e := cur[x+1]
			want := [4]float64{
				float64(c.R) + e[0],
				float64(c.G) + e[1],
				float64(c.B) + e[2],
				float64(c.A) + e[3],
			}
			q := pixel.Color{R: clampByte(want[0]), G: clampByte(want[1]), B: clampByte(want[2]), A: clampByte(want[3])}
			i := m.nearest(q)
			out[x] = uint8(i)

			got := m.colors[i]
			diff := [4]float64{
				want[0] - float64(got.R),
				want[1] - float64(got.G),
				want[2] - float64(got.B),
				want[3] - float64(got.A),
			}
			if m.dims == 3 {
				diff[3] = 0
			}
			for b := range 4 {
				cur[x+2][b] += diff[b] * 7 / 16
				next[x][b] += diff[b] * 3 / 16
				next[x+1][b] += diff[b] * 5 / 16
				next[x+2][b] += diff[b] * 1 / 16
			}
		}
		cur, next = next, cur
		clear(next)
	}
}
