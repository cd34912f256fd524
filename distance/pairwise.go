// SPDX-License-Identifier: MIT

package distance

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/otshift/matrix"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Pairwise computes the n×m cost matrix C[i][j] = metric(xs_i, xt_j).
//
// Contract:
//   - both sets non-empty and of equal dimensionality;
//   - the result is finite and nonnegative (custom metrics are checked).
//
// Errors: ErrEmptyPointSet, ErrDimensionMismatch, ErrInvalidCost.
//
// Complexity: Time O(n·m·d), Space O(n·m).
func Pairwise(xs, xt PointSet, m Metric) (*matrix.Dense, error) {
	if xs.Len() == 0 || xt.Len() == 0 {
		return nil, ErrEmptyPointSet
	}
	if xs.Dim() != xt.Dim() {
		return nil, fmt.Errorf("source dim %d, target dim %d: %w", xs.Dim(), xt.Dim(), ErrDimensionMismatch)
	}
	fn := m.pairFunc()
	n, k := xs.Len(), xt.Len()
	data := make([]float64, n*k)
	for i := 0; i < n; i++ {
		a := xs.point(i)
		for j := 0; j < k; j++ {
			c := fn(a, xt.point(j))
			if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
				return nil, fmt.Errorf("%s(%d,%d)=%g: %w", m, i, j, c, ErrInvalidCost)
			}
			data[i*k+j] = c
		}
	}

	return matrix.NewDenseFrom(n, k, data)
}

// pairFunc resolves the metric to a concrete function.
func (m Metric) pairFunc() Func {
	switch m.kind {
	case kindEuclidean:
		return func(a, b []float64) float64 { return floats.Distance(a, b, 2) }
	case kindCityblock:
		return func(a, b []float64) float64 { return floats.Distance(a, b, 1) }
	case kindChebyshev:
		return func(a, b []float64) float64 { return floats.Distance(a, b, math.Inf(1)) }
	case kindCosine:
		return cosineDistance
	case kindCustom:
		return m.fn
	default:
		return sqEuclidean
	}
}

// sqEuclidean is Σ (a_k - b_k)², accumulated directly to avoid a sqrt round trip.
func sqEuclidean(a, b []float64) float64 {
	s := 0.0
	for k, av := range a {
		d := av - b[k]
		s += d * d
	}

	return s
}

// cosineDistance is 1 - cos(a,b), clamped into [0,2]. A zero vector is at
// distance 1 from everything.
func cosineDistance(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - floats.Dot(a, b)/(na*nb)

	return math.Min(2, math.Max(0, d))
}

// Normalization selects a cost rescaling.
type Normalization int

const (
	// NormNone leaves the cost untouched.
	NormNone Normalization = iota
	// NormMax divides by the largest entry.
	NormMax
	// NormMedian divides by the median entry.
	NormMedian
	// NormLog replaces every entry by log(1 + C).
	NormLog
)

// ParseNormalization maps "", "none", "max", "median", "log" onto a Normalization.
func ParseNormalization(name string) (Normalization, error) {
	switch name {
	case "", "none":
		return NormNone, nil
	case "max":
		return NormMax, nil
	case "median":
		return NormMedian, nil
	case "log":
		return NormLog, nil
	default:
		return NormNone, fmt.Errorf("normalization %q: %w", name, ErrUnknownMetric)
	}
}

// NormalizeCost returns a rescaled copy of C. When the scale (max or median)
// is zero the cost is returned unchanged rather than divided by zero.
func NormalizeCost(c *matrix.Dense, mode Normalization) (*matrix.Dense, error) {
	switch mode {
	case NormNone:
		return c.Copy(), nil
	case NormLog:
		return matrix.Apply(c, math.Log1p)
	case NormMax:
		return scaleBy(c, floats.Max(c.Raw()))
	case NormMedian:
		sorted := append([]float64(nil), c.Raw()...)
		sort.Float64s(sorted)
		return scaleBy(c, stat.Quantile(0.5, stat.Empirical, sorted, nil))
	default:
		return nil, fmt.Errorf("normalization %d: %w", mode, ErrUnknownMetric)
	}
}

func scaleBy(c *matrix.Dense, s float64) (*matrix.Dense, error) {
	if s <= 0 {
		return c.Copy(), nil
	}

	return matrix.Scale(c, 1/s)
}
