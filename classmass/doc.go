// Package classmass turns per-sample class labels into the linear maps that
// move mass between samples and classes.
//
// For a domain with n labeled samples over C classes:
//
//	D1 (n×C)  one-hot: D1[i][c] = 1 when sample i has class c
//	D2 (C×n)  class-averaging: D2[c][i] = 1/n_c when sample i has class c
//
// so that D1ᵀ·w sums sample mass per class and D2ᵀ·h spreads a class
// distribution h evenly over each class's samples.
//
// An Encoder fixes one class indexing for every domain of a problem, so class
// vectors from different domains can be compared entry by entry. Labels are
// arbitrary integers; indices are assigned in ascending label order.
package classmass
