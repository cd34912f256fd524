// Package distance builds pairwise cost matrices between two point sets.
//
// 🚀 What is a cost matrix?
//
//	For source points x_1..x_n and target points y_1..y_m in R^d the cost
//	matrix C has C[i][j] = metric(x_i, y_j). It is the only geometric input of
//	an optimal-transport solve.
//
// ✨ Key features:
//   - PointSet: immutable, validated d-dimensional samples
//   - metrics: squared Euclidean (default), Euclidean, cityblock, Chebyshev,
//     cosine, or any user-supplied pairwise function via Custom
//   - NormalizeCost: max / median / log1p rescaling so that a regularization
//     strength is comparable across data scales
//
// ⚙️ Usage:
//
//	xs, _ := distance.NewPointSet([][]float64{{0, 0}, {1, 0}})
//	xt, _ := distance.NewPointSet([][]float64{{0, 1}})
//	C, err := distance.Pairwise(xs, xt, distance.SqEuclidean)
//
// Performance:
//
//   - Time:   O(n·m·d)
//   - Memory: O(n·m)
package distance
