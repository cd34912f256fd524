// SPDX-License-Identifier: MIT

package sinkhorn

import (
	"fmt"
	"math"

	"github.com/katalvlaran/otshift/matrix"
	"gonum.org/v1/gonum/floats"
)

// massTol is the relative tolerance on |Σa − Σb|.
const massTol = 1e-6

// Solve computes the entropic OT coupling between weights a and b under cost C.
//
// Contract:
//   - C is n×m, finite and nonnegative;
//   - len(a) == n; b is either empty (uniform mass Σa/m per column) or len m;
//   - weights are finite, nonnegative, with equal positive totals.
//
// Behavior:
//   - Alternates FitRows/FitCols until the relative L1 row-marginal error is
//     below Tol, checked every CheckEvery iterations and on the last one.
//   - Reaching MaxIter is a soft failure: Converged=false, the last iterate is
//     returned and err is nil unless opts.Strict (then ErrNonConvergence is
//     returned alongside the result).
//
// Errors: ErrDimensionMismatch, ErrInvalidWeights, ErrInvalidCost,
// ErrInvalidReg, ErrInvalidOptions, ErrDegenerateKernel, ErrNonConvergence.
//
// Complexity: Time O(iterations·n·m), Space O(n·m).
func Solve(a, b []float64, c *matrix.Dense, opts Options) (Result, error) {
	if err := validateCost(c); err != nil {
		return Result{}, err
	}
	n, m := c.Shape()
	if len(a) != n {
		return Result{}, fmt.Errorf("len(a)=%d, cost has %d rows: %w", len(a), n, ErrDimensionMismatch)
	}
	massA, err := validateWeights("a", a)
	if err != nil {
		return Result{}, err
	}
	if len(b) == 0 {
		b = Uniform(m)
		floats.Scale(massA, b)
	} else if len(b) != m {
		return Result{}, fmt.Errorf("len(b)=%d, cost has %d cols: %w", len(b), m, ErrDimensionMismatch)
	}
	massB, err := validateWeights("b", b)
	if err != nil {
		return Result{}, err
	}
	if math.Abs(massA-massB) > massTol*math.Max(massA, massB) {
		return Result{}, fmt.Errorf("Σa=%g, Σb=%g: %w", massA, massB, ErrInvalidWeights)
	}

	opts, err = normalize(opts)
	if err != nil {
		return Result{}, err
	}
	p, err := NewPlan(c, opts)
	if err != nil {
		return Result{}, err
	}

	st, err := p.Fit(a, b, opts)
	if err != nil {
		return Result{}, err
	}
	res := Result{Iterations: st.Iterations, Converged: st.Converged, MarginalErr: st.MarginalErr}
	if res.Coupling, err = p.Coupling(); err != nil {
		return Result{}, fmt.Errorf("coupling: %w", err)
	}
	res.U, res.V = p.Scalings()
	res.Cost, _ = Cost(res.Coupling, c)

	if !res.Converged && opts.Strict {
		return res, fmt.Errorf("%d iterations, marginal error %g: %w", res.Iterations, res.MarginalErr, ErrNonConvergence)
	}

	return res, nil
}

// normalize fills zero-valued optional fields and validates the rest.
func normalize(o Options) (Options, error) {
	if math.IsNaN(o.Reg) || math.IsInf(o.Reg, 0) || o.Reg <= 0 {
		return o, fmt.Errorf("reg=%g: %w", o.Reg, ErrInvalidReg)
	}
	if o.MaxIter < 1 {
		return o, fmt.Errorf("max iter %d: %w", o.MaxIter, ErrInvalidOptions)
	}
	if math.IsNaN(o.Tol) || o.Tol < 0 {
		return o, fmt.Errorf("tol=%g: %w", o.Tol, ErrInvalidOptions)
	}
	if math.IsNaN(o.Floor) || o.Floor < 0 {
		return o, fmt.Errorf("floor=%g: %w", o.Floor, ErrInvalidOptions)
	}
	if o.Method != Standard && o.Method != Log {
		return o, fmt.Errorf("%v: %w", o.Method, ErrInvalidOptions)
	}
	if o.Floor == 0 {
		o.Floor = DefaultFloor
	}
	if o.CheckEvery <= 0 {
		o.CheckEvery = DefaultCheckEvery
	}

	return o, nil
}

func validateCost(c *matrix.Dense) error {
	if err := matrix.ValidateNotNil(c); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidCost)
	}
	if err := matrix.ValidateFinite(c); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidCost)
	}
	if err := matrix.ValidateNonNegative(c, matrix.OwnEpsilon); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidCost)
	}

	return nil
}

// validateWeights returns the total mass of w.
func validateWeights(name string, w []float64) (float64, error) {
	total := 0.0
	for i, x := range w {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return 0, fmt.Errorf("%s[%d]=%g: %w", name, i, x, ErrInvalidWeights)
		}
		total += x
	}
	if total <= 0 {
		return 0, fmt.Errorf("%s has zero mass: %w", name, ErrInvalidWeights)
	}

	return total, nil
}
