// SPDX-License-Identifier: MIT

// Package convergence tracks the error sequence of an iterative solver and
// tells it when to stop: on tolerance, on the iteration cap or on a deadline.
// Every observed error is kept, so a finished run can hand back its trace.
package convergence

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Advice is the monitor's verdict after an observation.
type Advice int

const (
	// Continue means iterate again.
	Continue Advice = iota
	// Converged means the last error fell below the tolerance.
	Converged
	// MaxIterReached means the iteration cap was hit first.
	MaxIterReached
	// DeadlineExceeded means the wall-clock deadline passed.
	DeadlineExceeded
)

// String returns the advice name.
func (a Advice) String() string {
	switch a {
	case Continue:
		return "continue"
	case Converged:
		return "converged"
	case MaxIterReached:
		return "max_iter_reached"
	case DeadlineExceeded:
		return "deadline_exceeded"
	default:
		return fmt.Sprintf("Advice(%d)", int(a))
	}
}

// Done reports whether the advice ends the iteration.
func (a Advice) Done() bool { return a != Continue }

// Trace is the fixed-shape record of a finished (or running) iteration.
type Trace struct {
	Errors     []float64
	Iterations int
	Stop       Advice
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger routes progress logs to l. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) {
		if l == nil {
			l = zap.NewNop()
		}
		m.logger = l
	}
}

// WithVerbose logs every observed error at Info level (subject to WithEvery).
// Without it only the stop decision is logged, at Debug level.
func WithVerbose(v bool) Option {
	return func(m *Monitor) { m.verbose = v }
}

// WithDeadline stops the iteration once t has passed. The zero time disables it.
func WithDeadline(t time.Time) Option {
	return func(m *Monitor) { m.deadline = t }
}

// WithEvery logs one verbose line per n iterations.
// Panics if n < 1.
func WithEvery(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("convergence: WithEvery(%d): n must be >= 1", n))
	}
	return func(m *Monitor) { m.every = n }
}

// WithName tags every log line with the solver name.
func WithName(name string) Option {
	return func(m *Monitor) { m.name = name }
}

// WithClock replaces time.Now for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// Monitor decides when an iterative solver stops. It is not safe for
// concurrent use; solvers call Observe from their single reducing goroutine.
type Monitor struct {
	tol     float64
	maxIter int

	errs []float64
	stop Advice

	logger   *zap.Logger
	verbose  bool
	every    int
	deadline time.Time
	now      func() time.Time
	name     string
}

// New returns a monitor that converges once an observed error is below tol
// and gives up after maxIter observations (maxIter < 1 means no cap).
func New(tol float64, maxIter int, opts ...Option) *Monitor {
	m := &Monitor{
		tol:     tol,
		maxIter: maxIter,
		logger:  zap.NewNop(),
		every:   1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if maxIter > 0 {
		m.errs = make([]float64, 0, min(maxIter, 1024))
	}

	return m
}

// Observe records the error of one iteration and returns the advice.
// After a stopping advice further observations are ignored and the same
// advice is returned.
func (m *Monitor) Observe(err float64) Advice {
	if m.stop.Done() {
		return m.stop
	}
	m.errs = append(m.errs, err)
	it := len(m.errs)

	if m.verbose && (it%m.every == 0 || it == 1) {
		m.logger.Info("iteration",
			zap.String("solver", m.name),
			zap.Int("iter", it),
			zap.Float64("err", err))
	}

	switch {
	case err < m.tol:
		m.stop = Converged
	case m.maxIter > 0 && it >= m.maxIter:
		m.stop = MaxIterReached
	case m.Expired():
		m.stop = DeadlineExceeded
	}
	if m.stop.Done() {
		m.logger.Debug("stop",
			zap.String("solver", m.name),
			zap.Stringer("advice", m.stop),
			zap.Int("iterations", it),
			zap.Float64("err", err))
	}

	return m.stop
}

// Expired reports whether the deadline has passed. Solvers call it before the
// first iteration as well.
func (m *Monitor) Expired() bool {
	return !m.deadline.IsZero() && !m.now().Before(m.deadline)
}

// Abort ends the iteration with a deadline stop before any further
// observation, for solvers whose context is cancelled between iterations.
func (m *Monitor) Abort() Advice {
	if !m.stop.Done() {
		m.stop = DeadlineExceeded
		m.logger.Debug("stop",
			zap.String("solver", m.name),
			zap.Stringer("advice", m.stop),
			zap.Int("iterations", len(m.errs)))
	}

	return m.stop
}

// Stop returns the current advice (Continue while running).
func (m *Monitor) Stop() Advice { return m.stop }

// Iterations returns the number of observations.
func (m *Monitor) Iterations() int { return len(m.errs) }

// Errors returns a copy of every observed error.
func (m *Monitor) Errors() []float64 { return append([]float64(nil), m.errs...) }

// Last returns the most recent error, or +Inf before the first observation.
func (m *Monitor) Last() float64 {
	if len(m.errs) == 0 {
		return math.Inf(1)
	}

	return m.errs[len(m.errs)-1]
}

// Trace snapshots the monitor.
func (m *Monitor) Trace() Trace {
	return Trace{Errors: m.Errors(), Iterations: len(m.errs), Stop: m.stop}
}
