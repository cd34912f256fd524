// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Element-wise maps and comparisons: building a Gibbs kernel exp(-C/reg)
//     is an Apply, flooring it is a Clip, and tests compare with AllClose.
//
// Determinism & Performance:
//   - Single flat pass over the row-major buffer; O(r*c) time and space.

package matrix

import "math"

// Apply returns a new matrix with out[i,j] = fn(m[i,j]).
//
// Behavior highlights:
//   - The result does not validate NaN/Inf: fn may legitimately produce them
//     (e.g., log of zero mass). Use ValidateFinite on the result when needed.
//
// Errors: ErrNilMatrix.
// Complexity: O(r*c).
func Apply(m Matrix, fn func(float64) float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opApply, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opApply, err)
	}
	out := d.Copy()
	out.validateNaNInf = false
	for k, v := range out.data {
		out.data[k] = fn(v)
	}

	return out, nil
}

// Clip returns a copy of m with elements clamped into [lo, hi].
//
//	out[i,j] = min(max(m[i,j], lo), hi).
//
// Policy: if lo > hi the bounds are swapped; NaN bounds are rejected with ErrNaNInf;
// ±Inf bounds mean "unbounded on that side".
// Complexity: O(r*c).
func Clip(m Matrix, lo, hi float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opClip, err)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return nil, matrixErrorf(opClip, ErrNaNInf)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opClip, err)
	}
	out := d.Copy()
	for k, v := range out.data {
		if v < lo {
			out.data[k] = lo
		} else if v > hi {
			out.data[k] = hi
		}
	}

	return out, nil
}

// AllClose checks element-wise |a-b| ≤ atol + rtol*|b| for identical shapes.
// NaN != anything; +Inf equals +Inf; -Inf equals -Inf.
// rtol is treated as |rtol|; a negative atol (OwnEpsilon) uses a's Epsilon.
// Complexity: O(r*c).
func AllClose(a, b Matrix, rtol, atol float64) (bool, error) {
	if err := ValidateSameShape(a, b); err != nil {
		return false, matrixErrorf(opAllClose, err)
	}
	da, err := asDense(a)
	if err != nil {
		return false, matrixErrorf(opAllClose, err)
	}
	db, err := asDense(b)
	if err != nil {
		return false, matrixErrorf(opAllClose, err)
	}
	rtol = math.Abs(rtol)
	if atol < 0 {
		atol = da.eps
	}
	for k, av := range da.data {
		bv := db.data[k]
		if math.IsNaN(av) || math.IsNaN(bv) {
			return false, nil
		}
		if math.IsInf(av, 0) || math.IsInf(bv, 0) {
			if av != bv {
				return false, nil
			}
			continue
		}
		if math.Abs(av-bv) > atol+rtol*math.Abs(bv) {
			return false, nil
		}
	}

	return true, nil
}
