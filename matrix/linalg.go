// SPDX-License-Identifier: MIT
// Package matrix provides universal operations on any Matrix implementation:
// matrix-vector products (both orientations), matrix multiplication, transpose,
// scalar and diagonal scaling, and element-wise products. All functions perform
// strict fail-fast validation and return clear errors on dimension mismatches.
//
// Notes:
//   - Inputs are never mutated; every kernel allocates its result.
//   - Non-Dense inputs are materialized once through asDense, so each kernel
//     has a single deterministic flat loop.

package matrix

// zeroSum is the additive identity for accumulations.
const zeroSum = 0.0

// MatVec computes y = m * x for a column vector x.
//
// Contract: m non-nil; len(x) == m.Cols().
// Determinism: fixed i→j loop order.
// Complexity: Time O(r*c), Space O(r) for y.
//
// AI-Hints:
//   - K·v in a Sinkhorn half-step is exactly this kernel.
func MatVec(m Matrix, x []float64) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err := ValidateVecLen(x, m.Cols()); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	y := make([]float64, d.r)
	var acc float64
	for i := 0; i < d.r; i++ {
		acc = zeroSum
		row := d.data[i*d.c : (i+1)*d.c]
		for j, a := range row {
			acc += a * x[j]
		}
		y[i] = acc
	}

	return y, nil
}

// MatTVec computes y = mᵀ * x without materializing the transpose.
//
// Contract: m non-nil; len(x) == m.Rows().
// Determinism: rows are accumulated in fixed i order into y.
// Complexity: Time O(r*c), Space O(c) for y.
//
// AI-Hints:
//   - Kᵀ·u in a Sinkhorn half-step; D1ᵀ·mass for class aggregation.
func MatTVec(m Matrix, x []float64) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	if err := ValidateVecLen(x, m.Rows()); err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	y := make([]float64, d.c)
	for i := 0; i < d.r; i++ {
		xi := x[i]
		if xi == 0 {
			continue // zero rows contribute nothing
		}
		row := d.data[i*d.c : (i+1)*d.c]
		for j, a := range row {
			y[j] += a * xi
		}
	}

	return y, nil
}

// Mul computes the matrix product a·b.
//
// Contract: a.Cols() == b.Rows().
// Implementation: i-k-j loop order so the inner loop streams a row of b.
// Complexity: Time O(r*k*c), Space O(r*c).
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateNotNil(a); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	if err := ValidateNotNil(b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	if a.Cols() != b.Rows() {
		return nil, matrixErrorf(opMul, ErrDimensionMismatch)
	}
	da, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	db, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	out, err := NewDense(da.r, db.c)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	for i := 0; i < da.r; i++ {
		dst := out.data[i*db.c : (i+1)*db.c]
		for k := 0; k < da.c; k++ {
			aik := da.data[i*da.c+k]
			if aik == 0 {
				continue
			}
			src := db.data[k*db.c : (k+1)*db.c]
			for j, bkj := range src {
				dst[j] += aik * bkj
			}
		}
	}

	return out, nil
}

// Transpose returns mᵀ as a new Dense.
// Complexity: O(r*c).
func Transpose(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	out, err := NewDense(d.c, d.r)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	out.validateNaNInf = d.validateNaNInf
	for i := 0; i < d.r; i++ {
		for j := 0; j < d.c; j++ {
			out.data[j*d.r+i] = d.data[i*d.c+j]
		}
	}

	return out, nil
}

// Scale returns alpha·m.
// Complexity: O(r*c).
func Scale(m Matrix, alpha float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	out := d.Copy()
	for k := range out.data {
		out.data[k] *= alpha
	}

	return out, nil
}

// Hadamard returns the element-wise product a∘b.
// Errors: ErrNilMatrix, ErrDimensionMismatch.
// Complexity: O(r*c).
func Hadamard(a, b Matrix) (*Dense, error) {
	if err := ValidateSameShape(a, b); err != nil {
		return nil, matrixErrorf(opHadamard, err)
	}
	da, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opHadamard, err)
	}
	db, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opHadamard, err)
	}
	out := da.Copy()
	for k := range out.data {
		out.data[k] *= db.data[k]
	}

	return out, nil
}

// ScaleRows returns diag(u)·m.
// Contract: len(u) == m.Rows().
// Complexity: O(r*c).
func ScaleRows(m Matrix, u []float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScaleRows, err)
	}
	ones := make([]float64, m.Cols())
	for j := range ones {
		ones[j] = 1
	}
	out, err := ScaleRowsCols(m, u, ones)
	if err != nil {
		return nil, matrixErrorf(opScaleRows, err)
	}

	return out, nil
}

// ScaleCols returns m·diag(v).
// Contract: len(v) == m.Cols().
// Complexity: O(r*c).
func ScaleCols(m Matrix, v []float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScaleCols, err)
	}
	ones := make([]float64, m.Rows())
	for i := range ones {
		ones[i] = 1
	}
	out, err := ScaleRowsCols(m, ones, v)
	if err != nil {
		return nil, matrixErrorf(opScaleCols, err)
	}

	return out, nil
}

// ScaleRowsCols returns diag(u)·m·diag(v).
//
// This is the coupling reconstruction P = diag(u)·K·diag(v) of scaling solvers.
//
// Contract: len(u) == m.Rows(), len(v) == m.Cols().
// Complexity: Time O(r*c), Space O(r*c).
func ScaleRowsCols(m Matrix, u, v []float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScaleRowsCols, err)
	}
	if err := ValidateVecLen(u, m.Rows()); err != nil {
		return nil, matrixErrorf(opScaleRowsCols, err)
	}
	if err := ValidateVecLen(v, m.Cols()); err != nil {
		return nil, matrixErrorf(opScaleRowsCols, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opScaleRowsCols, err)
	}
	out := d.Copy()
	for i := 0; i < d.r; i++ {
		ui := u[i]
		row := out.data[i*d.c : (i+1)*d.c]
		for j := range row {
			row[j] *= ui * v[j]
		}
	}

	return out, nil
}
