// SPDX-License-Identifier: MIT

package distance

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrDimensionMismatch indicates point sets of different dimensionality,
	// or ragged rows inside one point set.
	ErrDimensionMismatch = errors.New("distance: dimension mismatch")

	// ErrEmptyPointSet indicates a point set without points or with zero-length points.
	ErrEmptyPointSet = errors.New("distance: empty point set")

	// ErrNonFinite indicates a NaN/±Inf coordinate.
	ErrNonFinite = errors.New("distance: non-finite coordinate")

	// ErrInvalidCost indicates a metric produced a negative or non-finite cost.
	ErrInvalidCost = errors.New("distance: invalid cost value")

	// ErrUnknownMetric indicates an unrecognized metric name.
	ErrUnknownMetric = errors.New("distance: unknown metric")
)

// PointSet is an ordered, immutable sequence of d-dimensional points.
// The zero value is an empty set.
type PointSet struct {
	n, d int
	data []float64 // row-major n×d
}

// NewPointSet copies rows into a PointSet.
// All rows must have the same positive length and finite coordinates.
func NewPointSet(rows [][]float64) (PointSet, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return PointSet{}, ErrEmptyPointSet
	}
	d := len(rows[0])
	data := make([]float64, 0, len(rows)*d)
	for i, row := range rows {
		if len(row) != d {
			return PointSet{}, fmt.Errorf("row %d has %d coordinates, want %d: %w", i, len(row), d, ErrDimensionMismatch)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return PointSet{}, fmt.Errorf("row %d: %w", i, ErrNonFinite)
			}
		}
		data = append(data, row...)
	}

	return PointSet{n: len(rows), d: d, data: data}, nil
}

// Len returns the number of points.
func (p PointSet) Len() int { return p.n }

// Dim returns the dimensionality d.
func (p PointSet) Dim() int { return p.d }

// Row returns a copy of point i. It panics on an out-of-range index,
// like slice indexing.
func (p PointSet) Row(i int) []float64 {
	out := make([]float64, p.d)
	copy(out, p.point(i))

	return out
}

// Rows returns a deep copy of all points.
func (p PointSet) Rows() [][]float64 {
	out := make([][]float64, p.n)
	for i := range out {
		out[i] = p.Row(i)
	}

	return out
}

// point returns a read-only view of point i.
func (p PointSet) point(i int) []float64 {
	return p.data[i*p.d : (i+1)*p.d]
}

// Func is a pairwise cost between two points of equal length.
type Func func(a, b []float64) float64

// Metric selects the pairwise cost.
type Metric struct {
	kind kind
	name string
	fn   Func
}

type kind int

const (
	kindSqEuclidean kind = iota
	kindEuclidean
	kindCityblock
	kindChebyshev
	kindCosine
	kindCustom
)

// Built-in metrics. SqEuclidean is the zero value.
var (
	SqEuclidean = Metric{kind: kindSqEuclidean, name: "sqeuclidean"}
	Euclidean   = Metric{kind: kindEuclidean, name: "euclidean"}
	Cityblock   = Metric{kind: kindCityblock, name: "cityblock"}
	Chebyshev   = Metric{kind: kindChebyshev, name: "chebyshev"}
	Cosine      = Metric{kind: kindCosine, name: "cosine"}
)

// Custom wraps a user-supplied pairwise function. The function must return
// finite, nonnegative values; Pairwise rejects anything else with ErrInvalidCost.
func Custom(name string, fn Func) Metric {
	if fn == nil {
		panic("distance: Custom(nil)")
	}
	if name == "" {
		name = "custom"
	}

	return Metric{kind: kindCustom, name: name, fn: fn}
}

// String returns the metric name.
func (m Metric) String() string {
	if m.name == "" {
		return SqEuclidean.name
	}

	return m.name
}

// ParseMetric maps a configuration name onto a built-in metric.
// Accepted names are case-insensitive: sqeuclidean, euclidean, cityblock
// (alias manhattan), chebyshev, cosine.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqeuclidean", "sq_euclidean":
		return SqEuclidean, nil
	case "euclidean":
		return Euclidean, nil
	case "cityblock", "manhattan":
		return Cityblock, nil
	case "chebyshev":
		return Chebyshev, nil
	case "cosine":
		return Cosine, nil
	default:
		return Metric{}, fmt.Errorf("%q: %w", name, ErrUnknownMetric)
	}
}
