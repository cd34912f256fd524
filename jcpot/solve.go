// SPDX-License-Identifier: MIT

package jcpot

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/katalvlaran/otshift/classmass"
	"github.com/katalvlaran/otshift/convergence"
	"github.com/katalvlaran/otshift/distance"
	"github.com/katalvlaran/otshift/matrix"
	"github.com/katalvlaran/otshift/sinkhorn"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Solve estimates the class proportions of the unlabeled target jointly with
// one entropic coupling per source domain.
//
// Each outer iteration:
//  1. every domain, in parallel, fits its coupling to the uniform target
//     marginal and reads its local class-mass vector off the row sums;
//  2. the domains meet at a barrier;
//  3. the reducer alone writes the new proportions (Options.Combine);
//  4. every domain, in parallel, refits its rows to the class-reweighted
//     sample weights of the new proportions;
//  5. the joint error ‖Δh‖₂ + max_k (max|ΔP_k| / max P_k) is handed to the
//     monitor; the coupling term is relative, so it does not shrink with n·m.
//
// The loop stops on err < Tol (Converged), after MaxIter iterations
// (MaxIterReached) or, checked between iterations, when TimeLimit or ctx
// ends it (DeadlineExceeded). Finally each coupling is refitted to its
// marginals (PolishIter, PolishTol) and Result.Polish records how close it
// got. A converged loop whose couplings still miss their marginals ends as
// PolishIncomplete. Only Converged sets Result.Converged; every other status
// is soft and still returns the last estimate.
//
// Errors: ErrNoDomains, ErrEmptyTarget, ErrInvalidOptions,
// sinkhorn.ErrInvalidReg, *DomainError for per-domain failures, and
// ErrNonConvergence (with a non-nil result) in Strict mode.
//
// Complexity: Time O(iterations · Σ_k n_k·m), Space O(Σ_k n_k·m).
func Solve(ctx context.Context, sources []Domain, target distance.PointSet, opts Options) (*Result, error) {
	opts, err := normalize(opts)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoDomains
	}
	if target.Len() == 0 {
		return nil, ErrEmptyTarget
	}
	enc, err := encoder(sources)
	if err != nil {
		return nil, err
	}

	states := make([]*domainState, len(sources))
	err = each(opts.Workers, len(sources), func(k int) error {
		s, err := newDomainState(k, sources[k], target, enc, opts)
		states[k] = s
		return err
	})
	if err != nil {
		return nil, err
	}

	log := opts.Logger.With(zap.String("solver", "jcpot"))
	log.Debug("solve",
		zap.Int("domains", len(states)),
		zap.Int("classes", enc.Classes()),
		zap.Int("target", target.Len()),
		zap.Stringer("combine", opts.Combine),
		zap.Stringer("method", opts.Method))

	mon := convergence.New(opts.Tol, opts.MaxIter,
		convergence.WithLogger(opts.Logger),
		convergence.WithVerbose(opts.Verbose),
		convergence.WithEvery(opts.LogEvery),
		convergence.WithName("jcpot"),
		convergence.WithDeadline(deadline(ctx, opts.TimeLimit)))

	b := sinkhorn.Uniform(target.Len())
	h := sinkhorn.Uniform(enc.Classes())
	var history [][]float64

	for !mon.Stop().Done() {
		if ctx.Err() != nil || mon.Expired() {
			mon.Abort()
			break
		}
		if err = eachState(opts.Workers, states, func(s *domainState) error { return s.observe(b) }); err != nil {
			return nil, err
		}
		next := reduce(states, enc.Classes(), opts.Combine)
		if err = eachState(opts.Workers, states, func(s *domainState) error { return s.refit(next) }); err != nil {
			return nil, err
		}

		moved := 0.0
		for _, s := range states {
			moved = math.Max(moved, s.diff)
		}
		e := floats.Distance(next, h, 2) + moved
		h = next
		if opts.Log {
			history = append(history, append([]float64(nil), h...))
		}
		mon.Observe(e)
	}

	err = eachState(opts.Workers, states, func(s *domainState) error {
		return s.polish(h, b, opts.PolishIter, opts.PolishTol)
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Proportions: h,
		Couplings:   make([]*matrix.Dense, len(states)),
		Classes:     enc.Labels(),
		Iterations:  mon.Iterations(),
		Err:         mon.Last(),
		Polish:      make([]sinkhorn.FitStats, len(states)),
		domains:     states,
		target:      target,
		plan:        opts.resolveOptions(),
	}
	polished := true
	for k, s := range states {
		res.Couplings[k] = s.prev
		res.Polish[k] = s.polished
		polished = polished && s.polished.Converged
	}
	switch mon.Stop() {
	case convergence.Converged:
		res.Status, res.Converged = Converged, polished
		if !polished {
			res.Status = PolishIncomplete
		}
	case convergence.DeadlineExceeded:
		res.Status = DeadlineExceeded
	default:
		res.Status = MaxIterReached
	}
	res.NonConvergence = !res.Converged
	if opts.Log {
		res.Trace = &Trace{
			Domains:     make([]DomainTrace, len(states)),
			Errors:      mon.Errors(),
			Proportions: history,
		}
		for k, s := range states {
			res.Trace.Domains[k] = s.trace()
		}
	}

	log.Debug("done",
		zap.Stringer("status", res.Status),
		zap.Int("iterations", res.Iterations),
		zap.Float64("err", res.Err),
		zap.Float64s("proportions", res.Proportions))
	for k, st := range res.Polish {
		if opts.PolishIter > 0 && !st.Converged {
			log.Warn("polish",
				zap.Int("domain", k),
				zap.Int("iterations", st.Iterations),
				zap.Float64("marginal_err", st.MarginalErr))
		}
	}

	if opts.Strict && !res.Converged {
		return res, fmt.Errorf("%s after %d iterations, err %g: %w", res.Status, res.Iterations, res.Err, ErrNonConvergence)
	}

	return res, nil
}

// normalize fills zero-valued optional fields and validates the rest.
func normalize(o Options) (Options, error) {
	if math.IsNaN(o.Reg) || math.IsInf(o.Reg, 0) || o.Reg <= 0 {
		return o, fmt.Errorf("reg=%g: %w", o.Reg, sinkhorn.ErrInvalidReg)
	}
	if o.MaxIter < 1 {
		return o, fmt.Errorf("max iter %d: %w", o.MaxIter, ErrInvalidOptions)
	}
	if math.IsNaN(o.Tol) || o.Tol < 0 {
		return o, fmt.Errorf("tol=%g: %w", o.Tol, ErrInvalidOptions)
	}
	if math.IsNaN(o.PolishTol) || o.PolishTol < 0 {
		return o, fmt.Errorf("polish tol=%g: %w", o.PolishTol, ErrInvalidOptions)
	}
	if o.Workers < 0 || o.PolishIter < 0 || o.TimeLimit < 0 || o.LogEvery < 0 {
		return o, fmt.Errorf("workers %d, polish %d, time limit %v, log every %d: %w",
			o.Workers, o.PolishIter, o.TimeLimit, o.LogEvery, ErrInvalidOptions)
	}
	switch o.Combine {
	case Geometric, Arithmetic, SampleWeighted:
	default:
		return o, fmt.Errorf("%v: %w", o.Combine, ErrInvalidOptions)
	}
	if o.Method != sinkhorn.Standard && o.Method != sinkhorn.Log {
		return o, fmt.Errorf("%v: %w", o.Method, ErrInvalidOptions)
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.LogEvery == 0 {
		o.LogEvery = 1
	}
	if o.PolishTol == 0 {
		o.PolishTol = DefaultPolishTol
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	return o, nil
}

func (o Options) planOptions() sinkhorn.Options {
	so := sinkhorn.DefaultOptions()
	so.Reg = o.Reg
	so.Method = o.Method
	so.Relaxed = o.Relaxed

	return so
}

// resolveOptions are the defaults of Result.Resolve: the plan options of the
// solve with the polish budget.
func (o Options) resolveOptions() sinkhorn.Options {
	so := o.planOptions()
	so.Tol = o.PolishTol
	if o.PolishIter > so.MaxIter {
		so.MaxIter = o.PolishIter
	}

	return so
}

// encoder indexes the labels of every source domain.
func encoder(sources []Domain) (*classmass.Encoder, error) {
	sets := make([][]int, len(sources))
	for k, d := range sources {
		if d.Points.Len() == 0 {
			return nil, domainErr(k, "points", distance.ErrEmptyPointSet)
		}
		if len(d.Labels) != d.Points.Len() {
			return nil, domainErr(k, "labels",
				fmt.Errorf("%d labels for %d points: %w", len(d.Labels), d.Points.Len(), classmass.ErrLabelLength))
		}
		sets[k] = d.Labels
	}

	return classmass.NewEncoder(sets...)
}

// deadline is the earlier of now+limit and the context deadline; zero when
// neither is set.
func deadline(ctx context.Context, limit time.Duration) time.Time {
	var t time.Time
	if limit > 0 {
		t = time.Now().Add(limit)
	}
	if d, ok := ctx.Deadline(); ok && (t.IsZero() || d.Before(t)) {
		t = d
	}

	return t
}

// each runs fn(0..n-1) on at most workers goroutines and waits for all of
// them; the first error wins.
func each(workers, n int, fn func(k int) error) error {
	var g errgroup.Group
	g.SetLimit(workers)
	for k := 0; k < n; k++ {
		k := k
		g.Go(func() error { return fn(k) })
	}

	return g.Wait()
}

func eachState(workers int, states []*domainState, fn func(*domainState) error) error {
	return each(workers, len(states), func(k int) error { return fn(states[k]) })
}
