// SPDX-License-Identifier: MIT
// Package matrix - reductions (marginals, totals, distances between matrices).
//
// Purpose:
//   - Marginals of couplings are row and column sums; these kernels are the
//     single source of truth for them so solvers and tests agree bit-for-bit.
//
// Determinism:
//   - Fixed i→j accumulation order.

package matrix

import "math"

// RowSums returns vector r where r[i] = sum_j m[i,j].
// Complexity: O(r*c).
func RowSums(m Matrix) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opRowSums, err)
	}
	ones := make([]float64, m.Cols())
	for j := range ones {
		ones[j] = 1
	}
	r, err := MatVec(m, ones)
	if err != nil {
		return nil, matrixErrorf(opRowSums, err)
	}

	return r, nil
}

// ColSums returns vector c where c[j] = sum_i m[i,j].
// Implementation: MatTVec with ones(rows); no transpose is materialized.
// Complexity: O(r*c).
func ColSums(m Matrix) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opColSums, err)
	}
	ones := make([]float64, m.Rows())
	for i := range ones {
		ones[i] = 1
	}
	c, err := MatTVec(m, ones)
	if err != nil {
		return nil, matrixErrorf(opColSums, err)
	}

	return c, nil
}

// Total returns the sum of all entries (total transported mass of a coupling).
// Complexity: O(r*c).
func Total(m Matrix) (float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return 0, matrixErrorf(opTotal, err)
	}
	d, err := asDense(m)
	if err != nil {
		return 0, matrixErrorf(opTotal, err)
	}
	s := zeroSum
	for _, v := range d.data {
		s += v
	}

	return s, nil
}

// MaxAbsDiff returns max_ij |a[i,j] - b[i,j]|.
// Errors: ErrNilMatrix, ErrDimensionMismatch.
// Complexity: O(r*c).
//
// AI-Hints:
//   - Iteration-to-iteration change of a coupling in fixed-point solvers.
func MaxAbsDiff(a, b Matrix) (float64, error) {
	if err := ValidateSameShape(a, b); err != nil {
		return 0, matrixErrorf(opMaxAbsDiff, err)
	}
	da, err := asDense(a)
	if err != nil {
		return 0, matrixErrorf(opMaxAbsDiff, err)
	}
	db, err := asDense(b)
	if err != nil {
		return 0, matrixErrorf(opMaxAbsDiff, err)
	}
	worst := 0.0
	for k, v := range da.data {
		if d := math.Abs(v - db.data[k]); d > worst {
			worst = d
		}
	}

	return worst, nil
}
