// SPDX-License-Identifier: MIT

package jcpot

import (
	"fmt"

	"github.com/katalvlaran/otshift/distance"
	"github.com/katalvlaran/otshift/matrix"
	"github.com/katalvlaran/otshift/sinkhorn"
	"gonum.org/v1/gonum/floats"
)

// Marginals returns, per source domain, the sample weights implied by the
// estimated proportions: each class's share spread evenly over the domain's
// samples of that class.
func (r *Result) Marginals() ([][]float64, error) {
	out := make([][]float64, len(r.domains))
	for k, s := range r.domains {
		w, err := s.agg.Marginal(r.Proportions)
		if err != nil {
			return nil, domainErr(k, "marginal", err)
		}
		out[k] = w
	}

	return out, nil
}

// SinkhornOptions returns the options Resolve uses: the Reg, Method and
// Relaxed of the solve, PolishTol as Tol and the polish budget as MaxIter.
// Adjust a copy and pass it to ResolveWith to re-solve differently.
func (r *Result) SinkhornOptions() sinkhorn.Options { return r.plan }

// Resolve solves domain k again as a plain Sinkhorn problem whose source
// weights follow props instead of the estimate, e.g. the true target
// proportions when they are known. The target stays uniform and the
// regularization is the one the couplings were estimated with.
func (r *Result) Resolve(k int, props []float64) (sinkhorn.Result, error) {
	return r.ResolveWith(k, props, r.plan)
}

// ResolveWith is Resolve with explicit Sinkhorn options.
func (r *Result) ResolveWith(k int, props []float64, opts sinkhorn.Options) (sinkhorn.Result, error) {
	s, err := r.domain(k)
	if err != nil {
		return sinkhorn.Result{}, err
	}
	w, err := s.agg.Marginal(props)
	if err != nil {
		return sinkhorn.Result{}, domainErr(k, "marginal", err)
	}
	res, err := sinkhorn.Solve(w, nil, s.cost, opts)
	if err != nil {
		return res, domainErr(k, "coupling", err)
	}

	return res, nil
}

// Transform maps the samples of domain k onto the target by the barycentric
// projection of its coupling.
func (r *Result) Transform(k int) (distance.PointSet, error) {
	if _, err := r.domain(k); err != nil {
		return distance.PointSet{}, err
	}
	pts, err := sinkhorn.Barycentric(r.Couplings[k], r.target)
	if err != nil {
		return distance.PointSet{}, domainErr(k, "coupling", err)
	}

	return pts, nil
}

// TargetLabelScores propagates the source labels to the target through the
// couplings: entry (j, c) is the mass that class c sends to target point j,
// summed over domains and normalized per point. Columns follow Classes.
// A target point that receives no mass gets uniform scores.
func (r *Result) TargetLabelScores() (*matrix.Dense, error) {
	m, nc := r.target.Len(), len(r.Classes)
	acc, err := matrix.NewDense(m, nc)
	if err != nil {
		return nil, err
	}
	data := acc.Raw()
	for k, s := range r.domains {
		pt, err := matrix.Transpose(r.Couplings[k])
		if err != nil {
			return nil, domainErr(k, "coupling", err)
		}
		sc, err := matrix.Mul(pt, s.agg.D1())
		if err != nil {
			return nil, domainErr(k, "coupling", err)
		}
		floats.Add(data, sc.Raw())
	}
	for j := 0; j < m; j++ {
		row := data[j*nc : (j+1)*nc]
		if t := floats.Sum(row); t > 0 {
			floats.Scale(1/t, row)
			continue
		}
		copy(row, sinkhorn.Uniform(nc))
	}

	return acc, nil
}

// PredictTargetLabels returns the label with the highest score for every
// target point. Ties go to the smaller label.
func (r *Result) PredictTargetLabels() ([]int, error) {
	scores, err := r.TargetLabelScores()
	if err != nil {
		return nil, err
	}
	out := make([]int, r.target.Len())
	for j := range out {
		row, _ := scores.Row(j)
		out[j] = r.Classes[floats.MaxIdx(row)]
	}

	return out, nil
}

func (r *Result) domain(k int) (*domainState, error) {
	if k < 0 || k >= len(r.domains) {
		return nil, fmt.Errorf("domain %d of %d: %w", k, len(r.domains), ErrUnknownDomain)
	}

	return r.domains[k], nil
}
