// SPDX-License-Identifier: MIT

package jcpot

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/katalvlaran/otshift/distance"
	"github.com/katalvlaran/otshift/matrix"
	"github.com/katalvlaran/otshift/sinkhorn"
	"go.uber.org/zap"
)

var (
	// ErrNoDomains indicates an empty list of source domains.
	ErrNoDomains = errors.New("jcpot: no source domains")

	// ErrEmptyTarget indicates a target point set without points.
	ErrEmptyTarget = errors.New("jcpot: empty target")

	// ErrInvalidOptions indicates a bad MaxIter, Tol, Workers, PolishIter,
	// PolishTol, LogEvery or TimeLimit, or an unknown Combine policy or Method.
	ErrInvalidOptions = errors.New("jcpot: invalid options")

	// ErrNonConvergence is returned, together with the result, only when
	// Options.Strict is set and the solve stopped without converging.
	ErrNonConvergence = errors.New("jcpot: did not converge")

	// ErrUnknownDomain indicates a domain index outside the solved sources.
	ErrUnknownDomain = errors.New("jcpot: unknown domain")
)

// DomainError reports which source domain, and which of its matrices, made
// the solve fail. The wrapped error carries the lower-level sentinel
// (distance, classmass or sinkhorn), so errors.Is keeps working.
type DomainError struct {
	Domain int
	Matrix string // "points", "labels", "cost", "kernel", "coupling", "marginal"
	Err    error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("jcpot: domain %d: %s: %v", e.Domain, e.Matrix, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

func domainErr(k int, what string, err error) error {
	return &DomainError{Domain: k, Matrix: what, Err: err}
}

// Domain is one labeled source domain.
type Domain struct {
	Points distance.PointSet
	Labels []int
}

// Combine is the rule fusing the per-domain class-mass vectors into the
// shared proportion estimate. Every rule averages a class only over the
// informative domains that contain it and renormalizes onto the simplex.
type Combine int

const (
	// Geometric averages the logarithms of the local class masses.
	Geometric Combine = iota

	// Arithmetic averages the normalized local class masses.
	Arithmetic

	// SampleWeighted is Arithmetic with each domain weighted by its size.
	SampleWeighted
)

// String returns the policy name.
func (c Combine) String() string {
	switch c {
	case Geometric:
		return "geometric"
	case Arithmetic:
		return "arithmetic"
	case SampleWeighted:
		return "weighted"
	default:
		return fmt.Sprintf("Combine(%d)", int(c))
	}
}

// ParseCombine maps a policy name onto a Combine.
func ParseCombine(name string) (Combine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "geometric", "geo":
		return Geometric, nil
	case "arithmetic", "mean":
		return Arithmetic, nil
	case "weighted", "sample-weighted", "sample_weighted":
		return SampleWeighted, nil
	default:
		return Geometric, fmt.Errorf("combine %q: %w", name, ErrInvalidOptions)
	}
}

// Status is the terminal state of a solve.
type Status int

const (
	// Converged: the joint error dropped below Tol.
	Converged Status = iota
	// MaxIterReached: MaxIter outer iterations ran without convergence.
	MaxIterReached
	// DeadlineExceeded: TimeLimit or the context stopped the iteration.
	DeadlineExceeded
	// PolishIncomplete: the outer loop converged but at least one coupling
	// still misses its marginals by more than PolishTol.
	PolishIncomplete
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxIterReached:
		return "max-iter"
	case DeadlineExceeded:
		return "deadline"
	case PolishIncomplete:
		return "polish"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Defaults used by DefaultOptions.
const (
	DefaultReg        = 0.1
	DefaultMaxIter    = 10
	DefaultTol        = 1e-9
	DefaultPolishIter = 50000
	DefaultPolishTol  = 1e-9
)

// Options configures Solve.
//
// Reg, Method and Relaxed are handed to every per-domain sinkhorn.Plan.
// Metric and Normalize build the cost matrices. Combine picks the
// proportion update. Workers bounds the per-domain goroutines (0 means
// GOMAXPROCS). TimeLimit, like a context deadline, is checked between outer
// iterations only. Verbose logs the joint error to Logger every LogEvery
// iterations (0 means every one). Log keeps the per-domain matrices in
// Result.Trace. PolishIter caps the final per-domain Sinkhorn run that makes
// each coupling meet its marginals; 0 skips it. That run stops once the
// relative L1 marginal error is below PolishTol (0 means DefaultPolishTol).
// Strict turns a solve that did not converge into an error.
type Options struct {
	Reg       float64
	MaxIter   int
	Tol       float64
	Metric    distance.Metric
	Normalize distance.Normalization
	Method    sinkhorn.Method
	Combine   Combine

	Workers   int
	TimeLimit time.Duration

	Verbose  bool
	LogEvery int
	Log      bool
	Logger   *zap.Logger

	Relaxed    bool
	Strict     bool
	PolishIter int
	PolishTol  float64
}

// DefaultOptions returns reg 0.1, 10 iterations, tol 1e-9, squared
// Euclidean cost, log-domain scaling and the geometric rule.
func DefaultOptions() Options {
	return Options{
		Reg:        DefaultReg,
		MaxIter:    DefaultMaxIter,
		Tol:        DefaultTol,
		Metric:     distance.SqEuclidean,
		Method:     sinkhorn.Log,
		Combine:    Geometric,
		Workers:    runtime.GOMAXPROCS(0),
		PolishIter: DefaultPolishIter,
		PolishTol:  DefaultPolishTol,
	}
}

// Result is the outcome of Solve.
type Result struct {
	// Proportions is the estimated target class distribution, indexed like
	// Classes.
	Proportions []float64
	// Couplings holds one n_k×m transport plan per source domain.
	Couplings []*matrix.Dense
	// Classes lists the original labels in ascending order.
	Classes []int

	Status Status
	// Converged is set only when the outer loop converged and every
	// coupling meets its marginals within PolishTol.
	Converged  bool
	Iterations int
	// NonConvergence is set whenever Status is not Converged.
	NonConvergence bool
	// Err is the last joint error.
	Err float64
	// Polish holds, per domain, the final Sinkhorn run. MarginalErr is the
	// larger L1 marginal error of the returned coupling, measured on the
	// coupling itself even when PolishIter is 0.
	Polish []sinkhorn.FitStats

	// Trace is nil unless Options.Log.
	Trace *Trace

	domains []*domainState
	target  distance.PointSet
	plan    sinkhorn.Options
}

// Trace is the inspection record of a solve.
type Trace struct {
	Domains     []DomainTrace
	Errors      []float64   // joint error per outer iteration
	Proportions [][]float64 // proportion estimate after each iteration
}

// DomainTrace is the final state of one source domain.
type DomainTrace struct {
	Cost     *matrix.Dense
	Kernel   *matrix.Dense
	U, V     []float64
	D1       *matrix.Dense // n×C one-hot
	D2       *matrix.Dense // C×n class redistribution
	Coupling *matrix.Dense
	// LocalMass is the domain's normalized class-mass vector from the last
	// iteration; a one-hot for single-class domains.
	LocalMass   []float64
	SingleClass bool
}
