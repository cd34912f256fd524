package jcpot_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/otshift/distance"
	"github.com/katalvlaran/otshift/jcpot"
	"github.com/katalvlaran/otshift/synth"
	"gonum.org/v1/gonum/floats"
)

// ExampleSolve estimates the target proportions of a seeded two-source
// scenario.
func ExampleSolve() {
	src, tgt := synth.Classic(30)
	sc, err := synth.TargetShift(src, tgt, synth.WithSeed(1985))
	if err != nil {
		panic(err)
	}
	sources := make([]jcpot.Domain, len(sc.Sources))
	for k, s := range sc.Sources {
		sources[k] = jcpot.Domain{Points: s.Points, Labels: s.Labels}
	}

	opts := jcpot.DefaultOptions()
	opts.Normalize = distance.NormMax
	res, err := jcpot.Solve(context.Background(), sources, sc.Target.Points, opts)
	if err != nil {
		panic(err)
	}
	fmt.Println("classes:", res.Classes)
	fmt.Println("couplings:", len(res.Couplings))
	fmt.Printf("mass: %.2f\n", floats.Sum(res.Proportions))
	// Output:
	// classes: [0 1]
	// couplings: 2
	// mass: 1.00
}
