// SPDX-License-Identifier: MIT

package jcpot

import (
	"fmt"
	"math"

	"github.com/katalvlaran/otshift/classmass"
	"github.com/katalvlaran/otshift/distance"
	"github.com/katalvlaran/otshift/matrix"
	"github.com/katalvlaran/otshift/sinkhorn"
	"gonum.org/v1/gonum/floats"
)

// polishCheckEvery spaces the marginal checks of the final fit; at small reg
// it can take tens of thousands of half-step pairs.
const polishCheckEvery = 10

// domainState is owned by exactly one goroutine per phase; the reducer only
// reads logMass, local and diff after the barrier.
type domainState struct {
	index int
	agg   *classmass.Aggregator
	cost  *matrix.Dense
	plan  *sinkhorn.Plan

	prev *matrix.Dense // coupling after the previous refit

	logMass []float64 // log class mass, −Inf for absent classes
	local   []float64 // logMass normalized onto the simplex
	single  bool
	diff    float64 // max |ΔP| / max P of the last refit

	polished sinkhorn.FitStats
}

func newDomainState(k int, d Domain, target distance.PointSet, enc *classmass.Encoder, opts Options) (*domainState, error) {
	agg, err := classmass.New(d.Points.Len(), d.Labels, enc)
	if err != nil {
		return nil, domainErr(k, "labels", err)
	}
	c, err := distance.Pairwise(d.Points, target, opts.Metric)
	if err != nil {
		return nil, domainErr(k, "cost", err)
	}
	if c, err = distance.NormalizeCost(c, opts.Normalize); err != nil {
		return nil, domainErr(k, "cost", err)
	}
	plan, err := sinkhorn.NewPlan(c, opts.planOptions())
	if err != nil {
		return nil, domainErr(k, "kernel", err)
	}
	s := &domainState{
		index:  k,
		agg:    agg,
		cost:   c,
		plan:   plan,
		single: agg.SingleClass(),
		diff:   math.Inf(1),
	}
	if s.single {
		s.local, _ = agg.OneHot()
	}

	return s, nil
}

// observe fits the columns of the plan to the target weights b and, for a
// domain with several classes, reads the class masses off the row sums.
func (s *domainState) observe(b []float64) error {
	if err := s.plan.FitCols(b); err != nil {
		return domainErr(s.index, "coupling", err)
	}
	if s.single {
		return nil
	}
	lm, err := s.agg.LogClassMass(s.plan.LogRowSums())
	if err != nil {
		return domainErr(s.index, "coupling", err)
	}
	z := floats.LogSumExp(lm)
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return domainErr(s.index, "coupling",
			fmt.Errorf("class mass log-sum %g: %w", z, sinkhorn.ErrDegenerateKernel))
	}
	local := make([]float64, len(lm))
	for c, x := range lm {
		lm[c] = x - z
		local[c] = math.Exp(lm[c])
	}
	s.logMass, s.local = lm, local

	return nil
}

// refit moves the row marginal to the class-reweighted sample weights of h
// and records how far the coupling moved, relative to its largest entry.
func (s *domainState) refit(h []float64) error {
	w, err := s.agg.Marginal(h)
	if err != nil {
		return domainErr(s.index, "marginal", err)
	}
	if err = s.plan.FitRows(w); err != nil {
		return domainErr(s.index, "coupling", err)
	}
	p, err := s.plan.Coupling()
	if err != nil {
		return domainErr(s.index, "coupling",
			fmt.Errorf("%v: %w", err, sinkhorn.ErrDegenerateKernel))
	}
	s.diff = math.Inf(1)
	if s.prev != nil {
		if s.diff, err = matrix.MaxAbsDiff(s.prev, p); err != nil {
			return domainErr(s.index, "coupling", err)
		}
		if top := floats.Max(p.Raw()); top > 0 {
			s.diff /= top
		}
	}
	s.prev = p

	return nil
}

// polish runs a full Sinkhorn fit against the final marginals so the
// returned coupling meets both of them, then measures how well it does.
// The plan keeps its scalings, so the fit starts from the last iterate.
// With maxIter 0 only the measurement runs.
func (s *domainState) polish(h, b []float64, maxIter int, tol float64) error {
	w, err := s.agg.Marginal(h)
	if err != nil {
		return domainErr(s.index, "marginal", err)
	}
	var st sinkhorn.FitStats
	if maxIter > 0 {
		fo := sinkhorn.DefaultOptions()
		fo.MaxIter, fo.Tol, fo.CheckEvery = maxIter, tol, polishCheckEvery
		if st, err = s.plan.Fit(w, b, fo); err != nil {
			return domainErr(s.index, "coupling", err)
		}
	}
	p, err := s.plan.Coupling()
	if err != nil {
		return domainErr(s.index, "coupling",
			fmt.Errorf("%v: %w", err, sinkhorn.ErrDegenerateKernel))
	}
	if st.MarginalErr, err = sinkhorn.MarginalError(p, w, b); err != nil {
		return domainErr(s.index, "coupling", err)
	}
	st.Converged = st.MarginalErr < tol
	s.prev, s.polished = p, st

	return nil
}

// trace snapshots the domain for Result.Trace.
func (s *domainState) trace() DomainTrace {
	u, v := s.plan.Scalings()

	return DomainTrace{
		Cost:        s.cost.Copy(),
		Kernel:      s.plan.Kernel(),
		U:           u,
		V:           v,
		D1:          s.agg.D1(),
		D2:          s.agg.D2(),
		Coupling:    s.prev.Copy(),
		LocalMass:   append([]float64(nil), s.local...),
		SingleClass: s.single,
	}
}
