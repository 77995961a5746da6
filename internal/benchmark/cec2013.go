// Package benchmark implements the CEC2013 niching benchmark suite
// (functions F1..F20), which the lineage experiments use to score
// real-valued genotypes. Larger values are better for every function.
package benchmark

import (
	"errors"
	"fmt"
)

const functionCount = 20

var (
	ErrUnknownFunction       = errors.New("unknown benchmark function")
	ErrDataDirRequired       = errors.New("composition functions require the CEC2013 data directory")
	ErrDimensionMismatch     = errors.New("genotype dimension mismatch")
	// ErrDegenerateComposition means the data files make a component's
	// normalizer zero, so every evaluation would be NaN or infinite.
	ErrDegenerateComposition = errors.New("degenerate composition data")
)

var dimensions = [functionCount]int{1, 1, 1, 2, 2, 2, 2, 3, 3, 2, 2, 2, 2, 3, 3, 5, 5, 10, 10, 20}

var globalOpt = [functionCount]float64{
	200.0, 1.0, 1.0, 200.0, 1.031628453489877, 186.7309088310239, 1.0,
	2709.093505572820, 1.0, -2.0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

var rho = [functionCount]float64{
	0.01, 0.01, 0.01, 0.01, 0.5, 0.5, 0.2, 0.5, 0.2, 0.01,
	0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01,
}

var knownOptima = [functionCount]int{2, 5, 1, 4, 2, 18, 36, 81, 216, 12, 6, 8, 6, 6, 8, 6, 8, 6, 8, 8}

var maxFEs = [functionCount]int{
	50000, 50000, 50000, 50000, 50000, 200000, 200000, 400000, 400000, 200000,
	200000, 200000, 200000, 400000, 400000, 400000, 400000, 400000, 400000, 400000,
}

// Function is one benchmark problem bound to its dimension and bounds.
type Function struct {
	id    int
	dim   int
	lower []float64
	upper []float64
	eval  func(x []float64) float64
}

type options struct {
	dataDir string
}

type Option func(*options)

// WithDataDir points composition functions (F11..F20) at the directory
// holding optima.dat and the CF rotation matrices.
func WithDataDir(dir string) Option {
	return func(o *options) {
		o.dataDir = dir
	}
}

// New builds CEC2013 function id (1-based).
func New(id int, opts ...Option) (*Function, error) {
	if id < 1 || id > functionCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFunction, id)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dim := dimensions[id-1]
	f := &Function{id: id, dim: dim}
	switch id {
	case 1:
		f.eval = fiveUnevenPeakTrap
	case 2:
		f.eval = equalMaxima
	case 3:
		f.eval = unevenDecreasingMaxima
	case 4:
		f.eval = himmelblau
	case 5:
		f.eval = sixHumpCamelBack
	case 6, 8:
		f.eval = shubert
	case 7, 9:
		f.eval = vincent
	case 10:
		f.eval = modifiedRastriginAll
	default:
		if o.dataDir == "" {
			return nil, fmt.Errorf("%w (function %d)", ErrDataDirRequired, id)
		}
		cf, err := newCompositionForID(id, dim, o.dataDir)
		if err != nil {
			return nil, err
		}
		f.eval = cf.evaluate
	}
	f.lower, f.upper = bounds(id, dim)
	return f, nil
}

func bounds(id, dim int) ([]float64, []float64) {
	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for k := 0; k < dim; k++ {
		switch {
		case id == 1:
			lower[k], upper[k] = 0, 30
		case id == 2 || id == 3 || id == 10:
			lower[k], upper[k] = 0, 1
		case id == 4:
			lower[k], upper[k] = -6, 6
		case id == 5:
			lower[k], upper[k] = []float64{-1.9, -1.1}[k], []float64{1.9, 1.1}[k]
		case id == 6 || id == 8:
			lower[k], upper[k] = -10, 10
		case id == 7 || id == 9:
			lower[k], upper[k] = 0.25, 10
		default:
			lower[k], upper[k] = compositionLower, compositionUpper
		}
	}
	return lower, upper
}

func (f *Function) ID() int { return f.id }

func (f *Function) Dimension() int { return f.dim }

func (f *Function) LowerBound(k int) float64 { return f.lower[k] }

func (f *Function) UpperBound(k int) float64 { return f.upper[k] }

func (f *Function) GlobalOptimum() float64 { return globalOpt[f.id-1] }

func (f *Function) KnownOptima() int { return knownOptima[f.id-1] }

func (f *Function) Rho() float64 { return rho[f.id-1] }

func (f *Function) MaxFEs() int { return maxFEs[f.id-1] }

// Evaluate scores genotype x. len(x) must equal Dimension().
func (f *Function) Evaluate(x []float64) (float64, error) {
	if len(x) != f.dim {
		return 0, fmt.Errorf("%w: function %d wants %d, got %d", ErrDimensionMismatch, f.id, f.dim, len(x))
	}
	return f.eval(x), nil
}

func (f *Function) String() string {
	return fmt.Sprintf("CEC2013 F%d (%dD)", f.id, f.dim)
}
