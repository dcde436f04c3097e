package quantize

import (
	"container/heap"
	"slices"

	"github.com/gogpu/imaging/pixel"
)

// box is a set of histogram entries with its bounding extents.
type box struct {
	entries    []entry
	population int
	lo, hi     [4]int
	priority   float64
	seq        int
}

func channel(c pixel.Color, axis int) int {
	switch axis {
	case 0:
		return int(c.R)
	case 1:
		return int(c.G)
	case 2:
		return int(c.B)
	default:
		return int(c.A)
	}
}

func newBox(entries []entry, dims int) *box {
	b := &box{entries: entries}
	for a := range dims {
		b.lo[a], b.hi[a] = 255, 0
	}
	for _, e := range entries {
		b.population += e.count
		for a := range dims {
			v := channel(e.c, a)
			b.lo[a] = min(b.lo[a], v)
			b.hi[a] = max(b.hi[a], v)
		}
	}
	return b
}

// longestAxis returns the axis with the largest extent; ties go to the
// lower axis.
func (b *box) longestAxis(dims int) (axis, extent int) {
	for a := range dims {
		if e := b.hi[a] - b.lo[a]; e > extent {
			axis, extent = a, e
		}
	}
	return axis, extent
}

// mean returns the population-weighted average color, rounded.
func (b *box) mean() pixel.Color {
	var sum [4]int
	for _, e := range b.entries {
		sum[0] += int(e.c.R) * e.count
		sum[1] += int(e.c.G) * e.count
		sum[2] += int(e.c.B) * e.count
		sum[3] += int(e.c.A) * e.count
	}
	n := b.population
	return pixel.Color{
		R: uint8((sum[0] + n/2) / n),
		G: uint8((sum[1] + n/2) / n),
		B: uint8((sum[2] + n/2) / n),
		A: uint8((sum[3] + n/2) / n),
	}
}

// splitter scores a box and splits it in two. A score of zero marks a box
// that cannot be split.
type splitter struct {
	score func(b *box, dims int) float64
	split func(b *box, dims int) (left, right []entry)
}

func sortAlong(entries []entry, axis int) {
	slices.SortStableFunc(entries, func(x, y entry) int {
		return channel(x.c, axis) - channel(y.c, axis)
	})
}

var medianCut = splitter{
	score: func(b *box, dims int) float64 {
		_, ext := b.longestAxis(dims)
		return float64(b.population) * float64(ext)
	},
	split: func(b *box, dims int) ([]entry, []entry) {
		axis, _ := b.longestAxis(dims)
		sortAlong(b.entries, axis)
		half := (b.population + 1) / 2
		cum := 0
		cut := len(b.entries) - 1
		for i, e := range b.entries[:len(b.entries)-1] {
			cum += e.count
			if cum >= half {
				cut = i + 1
				break
			}
		}
		return b.entries[:cut], b.entries[cut:]
	},
}

var maxCoverage = splitter{
	score: func(b *box, dims int) float64 {
		if _, ext := b.longestAxis(dims); ext == 0 {
			return 0
		}
		v := 1.0
		for a := range dims {
			v *= float64(b.hi[a] - b.lo[a] + 1)
		}
		return v
	},
	split: func(b *box, dims int) ([]entry, []entry) {
		axis, _ := b.longestAxis(dims)
		sortAlong(b.entries, axis)
		mid := (b.lo[axis] + b.hi[axis]) / 2
		cut, _ := slices.BinarySearchFunc(b.entries, mid+1, func(e entry, t int) int {
			return channel(e.c, axis) - t
		})
		return b.entries[:cut], b.entries[cut:]
	},
}

// boxHeap is a max-heap on priority; earlier boxes win ties.
type boxHeap []*box

func (h boxHeap) Len() int { return len(h) }
func (h boxHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h boxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *boxHeap) Push(x any)   { *h = append(*h, x.(*box)) }
func (h *boxHeap) Pop() any {
	old := *h
	b := old[len(old)-1]
	*h = old[:len(old)-1]
	return b
}

// splitBoxes grows a set of boxes from the whole histogram until it holds
// maxColors boxes or no box can be split, and returns their mean colors.
func splitBoxes(hist *histogram, maxColors int, s splitter) []pixel.Color {
	dims := hist.dims
	seq := 0
	push := func(h *boxHeap, entries []entry) {
		b := newBox(entries, dims)
		b.priority = s.score(b, dims)
		b.seq = seq
		seq++
		heap.Push(h, b)
	}

	h := &boxHeap{}
	push(h, slices.Clone(hist.entries))
	for h.Len() < maxColors {
		top := (*h)[0]
		if top.priority == 0 {
			break
		}
		heap.Pop(h)
		left, right := s.split(top, dims)
		push(h, left)
		push(h, right)
	}

	boxes := []*box(*h)
	slices.SortFunc(boxes, func(a, b *box) int { return a.seq - b.seq })
	out := make([]pixel.Color, len(boxes))
	for i, b := range boxes {
		out[i] = b.mean()
		if dims == 3 {
			out[i].A = 255
		}
	}
	return out
}
