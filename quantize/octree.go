package quantize

import (
	"slices"

	"github.com/gogpu/imaging/pixel"
)

const octreeDepth = 8

type octNode struct {
	children [16]*octNode
	// Totals of every color merged into this node.
	count int
	sum   [4]int
	leaf  bool
	seq   int
}

// childIndex takes bit 7-level of each channel, red most significant.
func childIndex(c pixel.Color, level, dims int) int {
	shift := 7 - level
	i := int(c.R>>shift&1)<<2 | int(c.G>>shift&1)<<1 | int(c.B>>shift&1)
	if dims == 4 {
		i = i<<1 | int(c.A>>shift&1)
	}
	return i
}

type octTree struct {
	root   *octNode
	dims   int
	leaves int
	levels [octreeDepth][]*octNode
	seq    int
}

func (t *octTree) newNode(level int) *octNode {
	n := &octNode{seq: t.seq}
	t.seq++
	if level == octreeDepth {
		n.leaf = true
		t.leaves++
	} else {
		t.levels[level] = append(t.levels[level], n)
	}
	return n
}

func (t *octTree) insert(e entry) {
	n := t.root
	for level := 0; ; level++ {
		n.count += e.count
		n.sum[0] += int(e.c.R) * e.count
		n.sum[1] += int(e.c.G) * e.count
		n.sum[2] += int(e.c.B) * e.count
		n.sum[3] += int(e.c.A) * e.count
		if n.leaf {
			return
		}
		i := childIndex(e.c, level, t.dims)
		if n.children[i] == nil {
			n.children[i] = t.newNode(level + 1)
		}
		n = n.children[i]
	}
}

// reduce turns internal nodes into leaves, deepest level first and least
// populated first within a level, until at most maxColors leaves remain.
func (t *octTree) reduce(maxColors int) {
	for level := octreeDepth - 1; level >= 0 && t.leaves > maxColors; level-- {
		nodes := t.levels[level]
		slices.SortStableFunc(nodes, func(a, b *octNode) int {
			if a.count != b.count {
				return a.count - b.count
			}
			return a.seq - b.seq
		})
		for _, n := range nodes {
			if t.leaves <= maxColors {
				break
			}
			kids := 0
			for i, c := range n.children {
				if c != nil {
					kids++
					n.children[i] = nil
				}
			}
			n.leaf = true
			t.leaves -= kids - 1
		}
	}
}

func (t *octTree) palette() []pixel.Color {
	var leaves []*octNode
	var walk func(n *octNode)
	walk = func(n *octNode) {
		if n.leaf {
			leaves = append(leaves, n)
			return
		}
		for _, c := range n.children {
			if c != nil {
				walk(c)
			}
		}
	}
	walk(t.root)
	slices.SortFunc(leaves, func(a, b *octNode) int { return a.seq - b.seq })

	out := make([]pixel.Color, len(leaves))
	for i, n := range leaves {
		h := n.count / 2
		out[i] = pixel.Color{
			R: uint8((n.sum[0] + h) / n.count),
			G: uint8((n.sum[1] + h) / n.count),
			B: uint8((n.sum[2] + h) / n.count),
			A: uint8((n.sum[3] + h) / n.count),
		}
		if t.dims == 3 {
			out[i].A = 255
		}
	}
	return out
}

// octree builds a palette of at most maxColors population-weighted leaf
// averages.
func octree(hist *histogram, maxColors, dims int) []pixel.Color {
	t := &octTree{dims: dims}
	t.root = t.newNode(0)
	for _, e := range hist.entries {
		t.insert(e)
	}
	t.reduce(maxColors)
	return t.palette()
}
