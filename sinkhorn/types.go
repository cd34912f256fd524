// SPDX-License-Identifier: MIT

package sinkhorn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/katalvlaran/otshift/matrix"
)

// Errors returned by this package. Match them with errors.Is.
var (
	// ErrDimensionMismatch indicates a weight vector whose length disagrees
	// with the cost matrix shape.
	ErrDimensionMismatch = errors.New("sinkhorn: dimension mismatch")

	// ErrInvalidWeights indicates negative or non-finite weights, a zero total
	// mass, or source and target masses that differ.
	ErrInvalidWeights = errors.New("sinkhorn: invalid weights")

	// ErrInvalidCost indicates a nil or non-finite cost matrix, or one with
	// an entry below −C.Epsilon() (rounding noise above that is accepted).
	ErrInvalidCost = errors.New("sinkhorn: invalid cost matrix")

	// ErrInvalidReg indicates reg <= 0 or not finite.
	ErrInvalidReg = errors.New("sinkhorn: regularization must be finite and > 0")

	// ErrInvalidOptions indicates MaxIter < 1, a negative tolerance or floor.
	ErrInvalidOptions = errors.New("sinkhorn: invalid options")

	// ErrDegenerateKernel indicates a kernel row or column that underflowed
	// entirely (reg too small for the cost scale), or scalings that overflowed.
	ErrDegenerateKernel = errors.New("sinkhorn: degenerate kernel")

	// ErrNonConvergence is returned only in Strict mode when MaxIter is reached
	// before the marginal error drops below Tol.
	ErrNonConvergence = errors.New("sinkhorn: did not converge")
)

// Method selects how the scaling iteration is carried out.
type Method int

const (
	// Standard scales the kernel K = exp(−C/reg) directly. Fast; may underflow
	// when reg is small relative to the cost range.
	Standard Method = iota

	// Log runs the same iteration on log u, log v and −C/reg with log-sum-exp
	// reductions. Slower; immune to underflow.
	Log
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case Standard:
		return "standard"
	case Log:
		return "log"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps "standard"/"sinkhorn" and "log"/"stabilized" onto a Method.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard", "sinkhorn":
		return Standard, nil
	case "log", "stabilized", "sinkhorn_log":
		return Log, nil
	default:
		return Standard, fmt.Errorf("method %q: %w", name, ErrInvalidOptions)
	}
}

// Defaults used by DefaultOptions.
const (
	DefaultReg        = 0.1
	DefaultMaxIter    = 1000
	DefaultTol        = 1e-9
	DefaultFloor      = 1e-300
	DefaultCheckEvery = 1
)

// Options configures Solve and NewPlan.
//
// Fields:
//   - Reg:        entropic regularization strength (> 0).
//   - MaxIter:    cap on scaling iterations (≥ 1).
//   - Tol:        stop once the L1 row-marginal error, relative to the mass,
//     falls below Tol.
//   - Method:     Standard or Log.
//   - Floor:      minimum kernel entry and division guard (0 ⇒ DefaultFloor).
//   - Relaxed:    accept degenerate kernels by substituting the floor.
//   - Strict:     turn non-convergence into ErrNonConvergence.
//   - CheckEvery: evaluate the stopping rule every k iterations (0 ⇒ 1).
type Options struct {
	Reg        float64
	MaxIter    int
	Tol        float64
	Method     Method
	Floor      float64
	Relaxed    bool
	Strict     bool
	CheckEvery int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Reg:        DefaultReg,
		MaxIter:    DefaultMaxIter,
		Tol:        DefaultTol,
		Method:     Standard,
		Floor:      DefaultFloor,
		CheckEvery: DefaultCheckEvery,
	}
}

// Result is the outcome of Solve.
//
// Fields:
//   - Coupling:    the transport plan P (n×m).
//   - U, V:        scaling vectors in the linear domain; under Log with a
//     very small reg they may leave float64 range (see Plan.Scalings).
//   - Iterations:  scaling iterations performed.
//   - Converged:   false when MaxIter was reached first (soft failure).
//   - MarginalErr: final relative L1 row-marginal error.
//   - Cost:        ⟨P,C⟩.
type Result struct {
	Coupling    *matrix.Dense
	U, V        []float64
	Iterations  int
	Converged   bool
	MarginalErr float64
	Cost        float64
}
