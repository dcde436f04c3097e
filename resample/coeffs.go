package resample

import (
	"math"

	"github.com/gogpu/imaging/internal/cache"
)

// Fixed-point precision for 8 and 16 bit samples.
const (
	fixedBits = 22
	fixedOne  = 1 << fixedBits
	fixedHalf = 1 << (fixedBits - 1)
)

// Contribution lists the normalized weights of the source samples
// Start, Start+1, ... that produce one output sample.
type Contribution struct {
	Start   int
	Weights []float64
}

// Coefficients computes the contributions for resampling a line of in
// samples to out samples. Taps that fall outside [0,in) are folded onto the
// nearest edge sample, and the weights of every contribution sum to 1.
// It returns nil when in or out is not positive or f is nil.
func Coefficients(in, out int, f *Filter) []Contribution {
	if in <= 0 || out <= 0 || f == nil {
		return nil
	}
	scale := float64(in) / float64(out)
	if f == Nearest {
		cs := make([]Contribution, out)
		for i := range cs {
			cs[i] = Contribution{Start: nearestIndex(i, scale, in), Weights: []float64{1}}
		}
		return cs
	}

	fscale := max(scale, 1)
	support := f.Support * fscale
	cs := make([]Contribution, out)
	for i := range cs {
		center := (float64(i) + 0.5) * scale
		lo := int(math.Floor(center - support - 0.5))
		hi := int(math.Ceil(center + support - 0.5))

		start := max(lo, 0)
		end := min(hi, in-1)
		if start > end {
			// The window lies entirely past one edge.
			start = min(max(lo, 0), in-1)
			end = start
		}
		w := make([]float64, end-start+1)
		var sum float64
		for j := lo; j <= hi; j++ {
			v := f.Weight((float64(j) + 0.5 - center) / fscale)
			if v == 0 {
				continue
			}
			k := min(max(j, start), end) - start
			w[k] += v
			sum += v
		}
		if sum == 0 {
			k := min(max(int(center), start), end) - start
			w[k], sum = 1, 1
		}
		for k := range w {
			w[k] /= sum
		}

		// Drop zero taps at both ends.
		first, last := 0, len(w)-1
		for first < last && w[first] == 0 {
			first++
		}
		for last > first && w[last] == 0 {
			last--
		}
		cs[i] = Contribution{Start: start + first, Weights: w[first : last+1]}
	}
	return cs
}

func nearestIndex(i int, scale float64, in int) int {
	return min(int((float64(i)+0.5)*scale), in-1)
}

type fixedContribution struct {
	start   int
	weights []int64
}

// toFixed rounds the weights to fixed point and moves the rounding residue
// onto the largest tap so that each row of weights sums to exactly fixedOne.
func toFixed(cs []Contribution) []fixedContribution {
	out := make([]fixedContribution, len(cs))
	for i, c := range cs {
		w := make([]int64, len(c.Weights))
		var sum int64
		big := 0
		for k, v := range c.Weights {
			w[k] = int64(math.Round(v * fixedOne))
			sum += w[k]
			if math.Abs(v) > math.Abs(c.Weights[big]) {
				big = k
			}
		}
		w[big] += fixedOne - sum
		out[i] = fixedContribution{start: c.Start, weights: w}
	}
	return out
}

type coeffKey struct {
	in, out int
	filter  *Filter
}

// coeffSet holds the float and fixed-point forms of one pass.
type coeffSet struct {
	float []Contribution
	fixed []fixedContribution
}

// passCoefficients caches the coefficients of recent passes; repeated
// resizes between the same sizes skip the weight computation.
var passCoefficients = cache.New[coeffKey, *coeffSet](32)

func cachedCoefficients(in, out int, f *Filter) *coeffSet {
	return passCoefficients.GetOrCreate(coeffKey{in, out, f}, func() *coeffSet {
		cs := Coefficients(in, out, f)
		return &coeffSet{float: cs, fixed: toFixed(cs)}
	})
}
