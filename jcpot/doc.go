// SPDX-License-Identifier: MIT

// Package jcpot estimates the class proportions of an unlabeled target
// domain from several labeled source domains under target shift, jointly
// with one entropic transport plan per source (Joint Class Proportion and
// Optimal Transport).
//
// 🚀 Target shift
//
//	Every domain draws its samples from the same class-conditional
//	distributions, but in its own class proportions. The sources are
//	labeled; the target is not. Reweighting each source so its classes
//	follow the target proportions h makes it transportable onto the target
//	at low cost, and the transport plans in turn say how much mass every
//	class sends to the target, which refines h.
//
// ✨ Algorithm (one outer iteration)
//
//   - per domain, in parallel: fit the plan's columns to the uniform target
//     weights, sum its rows by class (the local class-mass vector)
//   - barrier
//   - reduce: fuse the local vectors into h (Geometric, Arithmetic or
//     SampleWeighted), renormalized onto the simplex
//   - per domain, in parallel: fit the plan's rows to the class-reweighted
//     sample weights D2ᵀ·h
//   - joint error ‖Δh‖₂ + max|ΔP|/max P goes to a convergence.Monitor
//
// Domains holding a single class cannot tell anything about h: they keep
// a one-hot local vector, stay out of the reduction and are solved as
// plain Sinkhorn problems.
//
// After the loop a last Sinkhorn fit per domain makes each coupling meet its
// marginals; Result.Polish records how close it got, and a miss shows up as
// Status PolishIncomplete.
//
// ⚙️ Usage:
//
//	opts := jcpot.DefaultOptions()
//	opts.Reg = 0.01
//	opts.MaxIter = 1000
//	res, err := jcpot.Solve(ctx, sources, target, opts)
//	if err != nil { ... }
//	fmt.Println(res.Classes, res.Proportions, res.Status)
//
// Concurrency: per-domain work runs on an errgroup bounded by
// Options.Workers; the proportion vector has a single writer, the reducer,
// which runs between barriers. Results are identical for every Workers value.
package jcpot
