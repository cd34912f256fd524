// SPDX-License-Identifier: MIT

// Package matrix provides the dense storage and numeric kernels used by the
// transport solvers: cost matrices, Gibbs kernels, couplings and the class
// indicator/redistribution matrices.
//
// What & Why:
//
//	Every structure in an entropic OT solve is a dense n×m array of float64
//	values that is scanned row by row thousands of times. Dense keeps those
//	values in one flat row-major buffer (offset = i*cols + j) so hot loops
//	walk contiguous memory, while At/Set stay bounds-checked for callers.
//
// Key pieces:
//   - Dense: row-major storage with a per-instance NaN/Inf policy.
//   - Linear algebra: MatVec, MatTVec, Mul, Transpose, Hadamard, Scale.
//   - Diagonal scaling: ScaleRows, ScaleCols, ScaleRowsCols (diag(u)·A·diag(v)).
//   - Reductions: RowSums, ColSums, Total, MaxAbsDiff.
//   - Element-wise: Apply, Clip, AllClose.
//
// Error policy:
//
//	All functions return package sentinels (ErrDimensionMismatch, ErrNaNInf, ...)
//	wrapped with the operation tag; match them with errors.Is. Nothing panics on
//	user input; option constructors panic on nonsensical values.
//
// Determinism:
//
//	Fixed i→j loop orders everywhere; identical inputs give bit-identical outputs.
package matrix
