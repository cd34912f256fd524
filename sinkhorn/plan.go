// SPDX-License-Identifier: MIT

package sinkhorn

import (
	"fmt"
	"math"

	"github.com/katalvlaran/otshift/matrix"
	"gonum.org/v1/gonum/floats"
)

// Plan holds the scaling state of one entropic transport problem: the Gibbs
// kernel and the two scaling vectors. It starts from u = v = 1 and is
// advanced by FitRows and FitCols half-steps, so callers that re-target the
// marginals between half-steps (multi-domain solvers) reuse the same state.
//
// For the Log method the kernel and scalings are held as logarithms; every
// accessor returns linear-domain values.
//
// A Plan is not safe for concurrent use; distinct Plans are independent.
type Plan struct {
	n, m   int
	method Method
	floor  float64

	k    *matrix.Dense // Standard: floored exp(−C/reg)
	logK []float64     // Log: −C/reg, row-major
	u, v []float64     // Standard: u, v; Log: log u, log v

	scratch []float64 // Log: length max(n, m) buffer for LSE reductions
}

// NewPlan validates C and reg and builds the kernel.
//
// Errors: ErrInvalidCost, ErrInvalidReg, ErrInvalidOptions, and
// ErrDegenerateKernel (Standard only, unless opts.Relaxed) when some row or
// column of exp(−C/reg) is entirely below the floor.
func NewPlan(c *matrix.Dense, opts Options) (*Plan, error) {
	opts, err := normalize(opts)
	if err != nil {
		return nil, err
	}
	if err = validateCost(c); err != nil {
		return nil, err
	}
	n, m := c.Shape()
	p := &Plan{n: n, m: m, method: opts.Method, floor: opts.Floor}

	switch opts.Method {
	case Log:
		p.logK = make([]float64, n*m)
		for k, cv := range c.Raw() {
			p.logK[k] = -cv / opts.Reg
		}
		p.u = make([]float64, n) // log 1 = 0
		p.v = make([]float64, m)
		p.scratch = make([]float64, max(n, m))
	default:
		reg := opts.Reg
		raw, _ := matrix.Apply(c, func(x float64) float64 { return math.Exp(-x / reg) })
		if !opts.Relaxed {
			if err = checkKernel(raw, opts.Floor); err != nil {
				return nil, err
			}
		}
		if p.k, err = matrix.Clip(raw, opts.Floor, math.Inf(1)); err != nil {
			return nil, err
		}
		p.u = ones(n)
		p.v = ones(m)
	}

	return p, nil
}

// checkKernel reports the first row or column whose entries all fall below floor.
func checkKernel(k *matrix.Dense, floor float64) error {
	n, m := k.Shape()
	raw := k.Raw()
	colAlive := make([]bool, m)
	for i := 0; i < n; i++ {
		alive := false
		for j, x := range raw[i*m : (i+1)*m] {
			if x > floor {
				alive = true
				colAlive[j] = true
			}
		}
		if !alive {
			return fmt.Errorf("kernel row %d underflows: %w", i, ErrDegenerateKernel)
		}
	}
	for j, ok := range colAlive {
		if !ok {
			return fmt.Errorf("kernel column %d underflows: %w", j, ErrDegenerateKernel)
		}
	}

	return nil
}

// Shape returns (n, m).
func (p *Plan) Shape() (n, m int) { return p.n, p.m }

// Method reports the scaling method of the plan.
func (p *Plan) Method() Method { return p.method }

// FitRows rescales u so that the plan's row sums equal a:
//
//	u ← a ⊘ (K·v)
//
// Zero entries of a yield empty rows.
func (p *Plan) FitRows(a []float64) error {
	if len(a) != p.n {
		return fmt.Errorf("FitRows: len(a)=%d, want %d: %w", len(a), p.n, ErrDimensionMismatch)
	}
	if p.method == Log {
		for i := range p.u {
			p.u[i] = logDiv(a[i], p.rowLSE(i, p.v))
		}
		return nil
	}
	kv, err := matrix.MatVec(p.k, p.v)
	if err != nil {
		return err
	}
	for i, d := range kv {
		p.u[i] = a[i] / math.Max(d, p.floor)
	}

	return nil
}

// FitCols rescales v so that the plan's column sums equal b:
//
//	v ← b ⊘ (Kᵀ·u)
func (p *Plan) FitCols(b []float64) error {
	if len(b) != p.m {
		return fmt.Errorf("FitCols: len(b)=%d, want %d: %w", len(b), p.m, ErrDimensionMismatch)
	}
	if p.method == Log {
		for j := range p.v {
			p.v[j] = logDiv(b[j], p.colLSE(j, p.u))
		}
		return nil
	}
	ktu, err := matrix.MatTVec(p.k, p.u)
	if err != nil {
		return err
	}
	for j, d := range ktu {
		p.v[j] = b[j] / math.Max(d, p.floor)
	}

	return nil
}

// RowSums returns P·1 = u ⊙ (K·v) without materializing P.
func (p *Plan) RowSums() []float64 {
	out := make([]float64, p.n)
	if p.method == Log {
		for i := range out {
			out[i] = math.Exp(p.u[i] + p.rowLSE(i, p.v))
		}
		return out
	}
	kv, _ := matrix.MatVec(p.k, p.v)
	for i, d := range kv {
		out[i] = p.u[i] * d
	}

	return out
}

// LogRowSums returns log(P·1). Under the Log method it never leaves the log
// domain, so row masses far below the float64 range stay distinguishable.
func (p *Plan) LogRowSums() []float64 {
	out := make([]float64, p.n)
	if p.method == Log {
		for i := range out {
			out[i] = p.u[i] + p.rowLSE(i, p.v)
		}
		return out
	}
	for i, x := range p.RowSums() {
		out[i] = safeLog(x)
	}

	return out
}

// ColSums returns Pᵀ·1 = v ⊙ (Kᵀ·u) without materializing P.
func (p *Plan) ColSums() []float64 {
	out := make([]float64, p.m)
	if p.method == Log {
		for j := range out {
			out[j] = math.Exp(p.v[j] + p.colLSE(j, p.u))
		}
		return out
	}
	ktu, _ := matrix.MatTVec(p.k, p.u)
	for j, d := range ktu {
		out[j] = p.v[j] * d
	}

	return out
}

// Fit alternates FitRows(a) and FitCols(b) from the current scalings until
// the relative L1 row-marginal error drops below opts.Tol or opts.MaxIter
// iterations have run. Column sums match b exactly on return.
//
// Only MaxIter, Tol and CheckEvery of opts are read. Weights are not
// validated here; see Solve.
func (p *Plan) Fit(a, b []float64, opts Options) (FitStats, error) {
	st := FitStats{MarginalErr: math.Inf(1)}
	if opts.MaxIter < 1 {
		return st, fmt.Errorf("max iter %d: %w", opts.MaxIter, ErrInvalidOptions)
	}
	every := opts.CheckEvery
	if every <= 0 {
		every = DefaultCheckEvery
	}
	mass := floats.Sum(a)
	if mass <= 0 {
		return st, fmt.Errorf("zero row mass: %w", ErrInvalidWeights)
	}
	for it := 1; it <= opts.MaxIter; it++ {
		if err := p.FitRows(a); err != nil {
			return st, err
		}
		if err := p.FitCols(b); err != nil {
			return st, err
		}
		st.Iterations = it
		if it%every != 0 && it != opts.MaxIter {
			continue
		}
		if !p.finite() {
			return st, fmt.Errorf("scalings overflowed at iteration %d (try the log method): %w", it, ErrDegenerateKernel)
		}
		st.MarginalErr = floats.Distance(p.RowSums(), a, 1) / mass
		if st.MarginalErr < opts.Tol {
			st.Converged = true
			break
		}
	}

	return st, nil
}

// FitStats summarizes a Fit run.
type FitStats struct {
	Iterations  int
	MarginalErr float64
	Converged   bool
}

// Coupling materializes P = diag(u)·K·diag(v).
func (p *Plan) Coupling() (*matrix.Dense, error) {
	if p.method != Log {
		return matrix.ScaleRowsCols(p.k, p.u, p.v)
	}
	data := make([]float64, p.n*p.m)
	for i := 0; i < p.n; i++ {
		for j := 0; j < p.m; j++ {
			data[i*p.m+j] = math.Exp(p.u[i] + p.logK[i*p.m+j] + p.v[j])
		}
	}

	return matrix.NewDenseFrom(p.n, p.m, data)
}

// Kernel returns a copy of K = exp(−C/reg). For the Standard method entries
// are floored; for Log they are exact and may be 0.
func (p *Plan) Kernel() *matrix.Dense {
	if p.method != Log {
		return p.k.Copy()
	}
	data := make([]float64, len(p.logK))
	for k, x := range p.logK {
		data[k] = math.Exp(x)
	}
	out, _ := matrix.NewDenseFrom(p.n, p.m, data)

	return out
}

// Scalings returns copies of u and v in the linear domain. Under the Log
// method very small reg can push them outside float64 range (0 or +Inf);
// use LogScalings there.
func (p *Plan) Scalings() (u, v []float64) {
	u = append([]float64(nil), p.u...)
	v = append([]float64(nil), p.v...)
	if p.method == Log {
		for i := range u {
			u[i] = math.Exp(u[i])
		}
		for j := range v {
			v[j] = math.Exp(v[j])
		}
	}

	return u, v
}

// LogScalings returns copies of log u and log v.
func (p *Plan) LogScalings() (logU, logV []float64) {
	logU = append([]float64(nil), p.u...)
	logV = append([]float64(nil), p.v...)
	if p.method != Log {
		for i := range logU {
			logU[i] = safeLog(logU[i])
		}
		for j := range logV {
			logV[j] = safeLog(logV[j])
		}
	}

	return logU, logV
}

// finite reports whether all scalings are usable numbers.
func (p *Plan) finite() bool {
	for _, x := range p.u {
		if math.IsNaN(x) || math.IsInf(x, 1) {
			return false
		}
	}
	for _, x := range p.v {
		if math.IsNaN(x) || math.IsInf(x, 1) {
			return false
		}
	}

	return true
}

// rowLSE is log Σ_j exp(logK_ij + g_j); −Inf when every term is −Inf.
func (p *Plan) rowLSE(i int, g []float64) float64 {
	buf := p.scratch[:p.m]
	row := p.logK[i*p.m : (i+1)*p.m]
	for j, x := range row {
		buf[j] = x + g[j]
	}

	return floats.LogSumExp(buf)
}

// colLSE is log Σ_i exp(logK_ij + f_i).
func (p *Plan) colLSE(j int, f []float64) float64 {
	buf := p.scratch[:p.n]
	for i := range buf {
		buf[i] = p.logK[i*p.m+j] + f[i]
	}

	return floats.LogSumExp(buf)
}

// safeLog maps 0 to −Inf without a NaN for tiny negatives from rounding.
func safeLog(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}

	return math.Log(x)
}

// logDiv is log(x) − lse with an unreachable row or column (lse = −Inf)
// mapped to an empty one.
func logDiv(x, lse float64) float64 {
	if math.IsInf(lse, -1) {
		return math.Inf(-1)
	}

	return safeLog(x) - lse
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}

	return out
}
