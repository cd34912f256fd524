// SPDX-License-Identifier: MIT

package sinkhorn

import (
	"fmt"
	"math"

	"github.com/katalvlaran/otshift/distance"
	"github.com/katalvlaran/otshift/matrix"
	"gonum.org/v1/gonum/floats"
)

// Uniform returns the length-n vector with every entry 1/n.
// n <= 0 yields an empty vector.
func Uniform(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}

	return out
}

// Cost returns the transport cost ⟨P,C⟩ = Σ P_ij·C_ij.
func Cost(p, c *matrix.Dense) (float64, error) {
	h, err := matrix.Hadamard(p, c)
	if err != nil {
		return 0, fmt.Errorf("cost: %w", err)
	}

	return matrix.Total(h)
}

// Entropy returns H(P) = −Σ P_ij·log P_ij over the positive entries.
func Entropy(p *matrix.Dense) float64 {
	h := 0.0
	for _, x := range p.Raw() {
		if x > 0 {
			h -= x * math.Log(x)
		}
	}

	return h
}

// MarginalError returns the larger of ‖P·1 − a‖₁ and ‖Pᵀ·1 − b‖₁.
func MarginalError(p *matrix.Dense, a, b []float64) (float64, error) {
	rows, err := matrix.RowSums(p)
	if err != nil {
		return 0, err
	}
	cols, err := matrix.ColSums(p)
	if err != nil {
		return 0, err
	}
	if len(a) != len(rows) || len(b) != len(cols) {
		return 0, fmt.Errorf("marginals %d×%d for coupling %d×%d: %w",
			len(a), len(b), len(rows), len(cols), ErrDimensionMismatch)
	}

	return math.Max(floats.Distance(rows, a, 1), floats.Distance(cols, b, 1)), nil
}

// Barycentric maps every source point onto the P-weighted mean of the target
// points: x̂_i = Σ_j P_ij·xt_j / Σ_j P_ij. Rows that carry no mass are mapped
// onto the unweighted target centroid.
func Barycentric(p *matrix.Dense, xt distance.PointSet) (distance.PointSet, error) {
	if err := matrix.ValidateNotNil(p); err != nil {
		return distance.PointSet{}, err
	}
	if p.Cols() != xt.Len() {
		return distance.PointSet{}, fmt.Errorf("coupling has %d cols, target has %d points: %w",
			p.Cols(), xt.Len(), ErrDimensionMismatch)
	}
	target := xt.Rows()
	centroid := make([]float64, xt.Dim())
	for _, x := range target {
		floats.Add(centroid, x)
	}
	floats.Scale(1/float64(len(target)), centroid)

	out := make([][]float64, p.Rows())
	for i := range out {
		row, _ := p.Row(i)
		mass := floats.Sum(row)
		if mass <= 0 {
			out[i] = append([]float64(nil), centroid...)
			continue
		}
		acc := make([]float64, xt.Dim())
		for j, w := range row {
			if w != 0 {
				floats.AddScaled(acc, w/mass, target[j])
			}
		}
		out[i] = acc
	}

	return distance.NewPointSet(out)
}
