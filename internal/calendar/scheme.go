package calendar

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
)

// ErrInvalidLevels is returned when a scheme cannot produce at least one level.
var ErrInvalidLevels = errors.New("invalid intensity levels")

// DefaultCutoffs are the minute values at which levels 2, 3 and 4 begin in the fixed scheme.
var DefaultCutoffs = []float64{60, 180, 360}

// Scheme maps strictly positive values to intensity levels 1..Levels().
// Zero and negative values are always level 0 and never reach a Scheme.
type Scheme interface {
	// Levels is the highest level a positive value can reach.
	Levels() int
	// Validate reports configuration errors.
	Validate() error
	// Scale is computed once from every positive value in the window.
	Scale(positive []float64) Scale
}

// Scale is a Scheme resolved against a value population.
type Scale interface {
	Level(v float64) int
	// Bounds returns the level boundaries in ascending order, for legends.
	Bounds() []float64
}

// Fixed assigns levels from absolute cutoffs.
// A value v gets level 1 + the number of cutoffs c with v >= c.
type Fixed struct {
	Cutoffs []float64
}

func (f Fixed) Levels() int { return len(f.Cutoffs) + 1 }

func (f Fixed) Validate() error {
	for i, c := range f.Cutoffs {
		if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: cutoff %v must be a positive finite number", ErrInvalidLevels, c)
		}
		if i > 0 && c <= f.Cutoffs[i-1] {
			return fmt.Errorf("%w: cutoffs must be strictly increasing, got %v", ErrInvalidLevels, f.Cutoffs)
		}
	}
	return nil
}

func (f Fixed) Scale([]float64) Scale {
	return fixedScale(slices.Clone(f.Cutoffs))
}

type fixedScale []float64

func (s fixedScale) Level(v float64) int {
	// number of cutoffs <= v
	return 1 + sort.Search(len(s), func(i int) bool { return s[i] > v })
}

func (s fixedScale) Bounds() []float64 { return slices.Clone(s) }

// Quantile splits the positive population into N equally sized buckets.
//
// With the positive values sorted ascending as p[0..m-1], bound k (k = 1..N-1) is
// p[ceil(k*m/N)-1]. A value v gets level 1 + the number of bounds strictly below v,
// so each bound is the inclusive upper edge of its bucket.
type Quantile struct {
	N int
}

func (q Quantile) Levels() int { return q.N }

func (q Quantile) Validate() error {
	if q.N < 1 {
		return fmt.Errorf("%w: need at least 1 level, got %d", ErrInvalidLevels, q.N)
	}
	return nil
}

func (q Quantile) Scale(positive []float64) Scale {
	if len(positive) == 0 || q.N <= 1 {
		return quantileScale{}
	}
	sorted := slices.Clone(positive)
	slices.Sort(sorted)

	m := len(sorted)
	bounds := make([]float64, 0, q.N-1)
	for k := 1; k < q.N; k++ {
		idx := (k*m+q.N-1)/q.N - 1
		bounds = append(bounds, sorted[idx])
	}
	return quantileScale(bounds)
}

type quantileScale []float64

func (s quantileScale) Level(v float64) int {
	// number of bounds < v
	return 1 + sort.Search(len(s), func(i int) bool { return s[i] >= v })
}

func (s quantileScale) Bounds() []float64 { return slices.Clone(s) }

// NewScheme returns the scheme named by kind ("fixed" or "quantile").
// levels is only used by the quantile scheme; cutoffs only by the fixed one.
func NewScheme(kind string, levels int, cutoffs []float64) (Scheme, error) {
	var s Scheme
	switch kind {
	case "", "fixed":
		if len(cutoffs) == 0 {
			cutoffs = DefaultCutoffs
		}
		s = Fixed{Cutoffs: slices.Clone(cutoffs)}
	case "quantile":
		s = Quantile{N: levels}
	default:
		return nil, fmt.Errorf("%w: unknown scheme %q (want fixed or quantile)", ErrInvalidLevels, kind)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
