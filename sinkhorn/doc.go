// Package sinkhorn solves entropic-regularized optimal transport by
// Sinkhorn–Knopp matrix scaling.
//
// 🚀 What is entropic OT?
//
//	Given a cost matrix C (n×m) and two weight vectors a (n) and b (m) of equal
//	mass, find the coupling P ≥ 0 with row sums a and column sums b that
//	minimizes ⟨P,C⟩ − reg·H(P). The solution has the form
//
//	  P = diag(u) · K · diag(v),   K = exp(−C/reg)
//
//	and u, v are found by alternately rescaling rows and columns:
//
//	  u ← a ⊘ (K·v)
//	  v ← b ⊘ (Kᵀ·u)
//
// ✨ Key features:
//   - Plan: the reusable scaling state (kernel + u + v) with FitRows/FitCols
//     half-steps, shared by Solve and by multi-domain solvers
//   - Standard method: kernel scaling with an epsilon floor and degenerate
//     kernel detection
//   - Log method: log-domain scaling that never underflows, for small reg
//   - soft non-convergence (flag in Result) or Strict mode (error)
//   - helpers: Cost, Entropy, MarginalError, Uniform, Barycentric
//
// ⚙️ Usage:
//
//	opts := sinkhorn.DefaultOptions()
//	opts.Reg = 0.05
//	res, err := sinkhorn.Solve(a, nil, C, opts) // nil b ⇒ uniform target
//	if err != nil { ... }
//	if !res.Converged { ... } // last iterate is still returned
//
// Performance:
//
//   - Time:   O(iterations · n · m)
//   - Memory: O(n · m)
package sinkhorn
