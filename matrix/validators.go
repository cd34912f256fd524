// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//  - Provide a single, canonical source of truth for common validation checks.
//  - Keep kernels minimal by delegating shape/nil/finite checks here.
//
// Determinism & Performance:
//  - All checks are pure, deterministic and allocate nothing.

package matrix

import (
	"fmt"
	"math"
)

// validatorErrorf wraps an underlying error with the given validator tag.
func validatorErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// ValidateNotNil ensures the matrix reference is non-nil.
// Complexity: O(1).
func ValidateNotNil(m Matrix) error {
	if m == nil {
		return validatorErrorf("ValidateNotNil", ErrNilMatrix)
	}
	if d, ok := m.(*Dense); ok && d == nil {
		return validatorErrorf("ValidateNotNil", ErrNilMatrix)
	}

	return nil
}

// ValidateSameShape ensures matrices a and b are non-nil and have equal dimensions.
// Complexity: O(1).
func ValidateSameShape(a, b Matrix) error {
	if err := ValidateNotNil(a); err != nil {
		return err
	}
	if err := ValidateNotNil(b); err != nil {
		return err
	}
	if a.Rows() != b.Rows() {
		return validatorErrorf("ValidateSameShape: Rows", ErrDimensionMismatch)
	}
	if a.Cols() != b.Cols() {
		return validatorErrorf("ValidateSameShape: Columns", ErrDimensionMismatch)
	}

	return nil
}

// ValidateVecLen ensures the vector length matches the required size n.
// Complexity: O(1).
func ValidateVecLen(x []float64, n int) error {
	if x == nil {
		return validatorErrorf("ValidateVecLen", ErrNilMatrix)
	}
	if len(x) != n {
		return validatorErrorf("ValidateVecLen", ErrDimensionMismatch)
	}

	return nil
}

// ValidateFinite scans m and reports the first NaN/±Inf entry.
// Complexity: O(r*c).
func ValidateFinite(m Matrix) error {
	if err := ValidateNotNil(m); err != nil {
		return err
	}
	d, err := asDense(m)
	if err != nil {
		return err
	}
	for k, v := range d.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return denseErrorf("ValidateFinite", k/d.c, k%d.c, ErrNaNInf)
		}
	}

	return nil
}

// ValidateNonNegative scans m and reports the first entry below -eps.
// A negative eps (OwnEpsilon) uses the matrix's own Epsilon.
// Used for cost matrices and couplings.
// Complexity: O(r*c).
func ValidateNonNegative(m Matrix, eps float64) error {
	if err := ValidateNotNil(m); err != nil {
		return err
	}
	d, err := asDense(m)
	if err != nil {
		return err
	}
	if eps < 0 {
		eps = d.eps
	}
	for k, v := range d.data {
		if v < -eps {
			return denseErrorf("ValidateNonNegative", k/d.c, k%d.c, ErrNegative)
		}
	}

	return nil
}
