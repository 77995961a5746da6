// Package lineagestats computes fitness volatility and genotype movement
// along a lineage.
package lineagestats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"lineagekit/internal/phylogeny"
)

// DefaultWindows are the rolling-mean widths reported per lineage.
var DefaultWindows = []int{1000, 500, 100, 50}

// Variance is the sample variance (n-1 denominator) of the defined values.
// Fewer than two defined values yield NaN.
func Variance(xs []float64) float64 {
	defined := dropNaN(xs)
	if len(defined) < 2 {
		return math.NaN()
	}
	return stat.Variance(defined, nil)
}

// RollingMean averages each trailing window of xs. The first window-1
// outputs, and any window containing NaN, are NaN.
func RollingMean(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		if window <= 0 || i+1 < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Mean(xs[i+1-window:i+1], nil)
	}
	return out
}

// RollingMeanVolatility is the variance of the rolling means of xs.
func RollingMeanVolatility(xs []float64, window int) float64 {
	return Variance(RollingMean(xs, window))
}

// Summary aggregates one lineage.
type Summary struct {
	PhenotypicVolatility float64
	RollingVolatility    map[int]float64
	XMagnitude           float64
	YMagnitude           float64
	TotalMagnitude       float64
	Beneficial           int
	Neutral              int
	Deleterious          int
}

func (s Summary) Edges() int {
	return s.Beneficial + s.Neutral + s.Deleterious
}

// Summarize computes volatility over the lineage's fitness sequence and
// movement over each child-to-parent edge.
func Summarize(l phylogeny.Lineage, windows []int) Summary {
	fits := l.Fitnesses()
	s := Summary{
		PhenotypicVolatility: Variance(fits),
		RollingVolatility:    make(map[int]float64, len(windows)),
	}
	for _, w := range windows {
		s.RollingVolatility[w] = RollingMeanVolatility(fits, w)
	}

	for i := 0; i+1 < len(l.Steps); i++ {
		child, parent := l.Steps[i], l.Steps[i+1]
		dx := math.Abs(parent.X - child.X)
		dy := math.Abs(parent.Y - child.Y)
		s.XMagnitude += dx
		s.YMagnitude += dy
		s.TotalMagnitude += dx + dy

		switch {
		case child.Fitness > parent.Fitness:
			s.Beneficial++
		case child.Fitness == parent.Fitness:
			s.Neutral++
		default:
			s.Deleterious++
		}
	}
	return s
}

func dropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
