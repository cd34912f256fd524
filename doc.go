// Package otshift is an in-memory toolkit for entropic optimal transport and
// for estimating class proportions under target shift from several labeled
// source domains.
//
// 🚀 What is in the box?
//
//	A pure-Go numerical library on dense row-major matrices:
//		• matrix:      Dense storage, validators and the linear-algebra kernels
//		• distance:    point sets, pairwise cost matrices, cost normalization
//		• sinkhorn:    entropic OT by Sinkhorn–Knopp scaling (standard and log)
//		• classmass:   class encoders and the per-domain D1/D2 aggregators
//		• convergence: stop advice, error traces and iteration logging
//		• jcpot:       joint class proportion and transport estimation
//		• synth:       seeded Gaussian class mixtures for experiments
//
// ✨ Highlights:
//
//   - deterministic results for a fixed input, whatever the worker count
//   - soft non-convergence: the last iterate always comes back
//   - log-domain scaling for small regularization
//   - structured traces instead of ad hoc logs
//
// Layout:
//
//	cmd/otshift/ is a CLI over YAML problem files (fit, sinkhorn, demo)
//	examples/    holds runnable scenarios
//
// Quick sketch of one target-shift iteration:
//
//	source 1 ─┐                ┌─ fit rows to D2ᵀ·h ─┐
//	source 2 ─┼─ class masses ─┤ reduce → h          ├─ joint error
//	source k ─┘                └─ fit rows to D2ᵀ·h ─┘
//
//	go get github.com/katalvlaran/otshift
package otshift
