package sinkhorn_test

import (
	"fmt"

	"github.com/katalvlaran/otshift/matrix"
	"github.com/katalvlaran/otshift/sinkhorn"
)

// ExampleSolve transports 70/30 mass onto 40/60 mass. At small reg the
// entropic cost approaches the exact optimum 1.6.
func ExampleSolve() {
	c, _ := matrix.NewDenseRows([][]float64{{1, 3}, {2, 1}})
	opts := sinkhorn.DefaultOptions()
	opts.Reg = 0.02
	opts.Method = sinkhorn.Log

	res, err := sinkhorn.Solve([]float64{0.7, 0.3}, []float64{0.4, 0.6}, c, opts)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("converged: %v\n", res.Converged)
	fmt.Printf("cost: %.2f\n", res.Cost)
	// Output:
	// converged: true
	// cost: 1.60
}
