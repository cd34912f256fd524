// SPDX-License-Identifier: MIT

// Package synth generates labeled Gaussian class mixtures for target-shift
// experiments: several source domains and one target domain that share the
// same classes in different proportions, each domain at its own offset.
//
// All randomness is explicit (WithSeed / WithRand) and every domain draws
// from its own derived stream, so a scenario is reproducible bit for bit.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/katalvlaran/otshift/distance"
)

var (
	// ErrBadSize indicates a non-positive sample count, or proportions that
	// leave a domain without samples.
	ErrBadSize = errors.New("synth: invalid size")

	// ErrInvalidProportions indicates negative, non-finite or empty proportions.
	ErrInvalidProportions = errors.New("synth: invalid proportions")

	// ErrDimensionMismatch indicates centers and offset of different lengths.
	ErrDimensionMismatch = errors.New("synth: dimension mismatch")

	// ErrNeedRandSource indicates sigma > 0 without WithSeed or WithRand.
	ErrNeedRandSource = errors.New("synth: rng is required")
)

// Sample is one generated domain.
type Sample struct {
	Points distance.PointSet
	Labels []int
}

// Class is one Gaussian blob: its label and center.
type Class struct {
	Label  int
	Center []float64
}

// Mixture draws floor(p_c·n) samples around every class center (shifted by
// offset), class after class in the given order. Proportions need not sum to 1.
func Mixture(n int, classes []Class, proportions, offset []float64, opts ...Option) (Sample, error) {
	return mixture(newConfig(opts...), 0, n, classes, proportions, offset)
}

func mixture(cfg config, stream, n int, classes []Class, proportions, offset []float64) (Sample, error) {
	if n <= 0 {
		return Sample{}, fmt.Errorf("n=%d: %w", n, ErrBadSize)
	}
	if len(classes) == 0 || len(classes) != len(proportions) {
		return Sample{}, fmt.Errorf("%d classes, %d proportions: %w", len(classes), len(proportions), ErrInvalidProportions)
	}
	d := len(offset)
	for _, c := range classes {
		if len(c.Center) != d {
			return Sample{}, fmt.Errorf("class %d center has %d coordinates, offset %d: %w", c.Label, len(c.Center), d, ErrDimensionMismatch)
		}
	}
	counts := make([]int, len(proportions))
	total := 0
	for c, p := range proportions {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return Sample{}, fmt.Errorf("p[%d]=%g: %w", c, p, ErrInvalidProportions)
		}
		counts[c] = int(p * float64(n))
		total += counts[c]
	}
	if total == 0 {
		return Sample{}, fmt.Errorf("no samples for n=%d: %w", n, ErrBadSize)
	}
	rng := cfg.stream(stream)
	if cfg.sigma > 0 && rng == nil {
		return Sample{}, ErrNeedRandSource
	}

	rows := make([][]float64, 0, total)
	labels := make([]int, 0, total)
	for c, k := range counts {
		for i := 0; i < k; i++ {
			rows = append(rows, draw(rng, cfg.sigma, classes[c].Center, offset))
			labels = append(labels, classes[c].Label)
		}
	}
	pts, err := distance.NewPointSet(rows)
	if err != nil {
		return Sample{}, err
	}

	return Sample{Points: pts, Labels: labels}, nil
}

func draw(rng *rand.Rand, sigma float64, center, offset []float64) []float64 {
	x := make([]float64, len(center))
	for k := range x {
		x[k] = center[k] + offset[k]
		if sigma > 0 {
			x[k] += sigma * rng.NormFloat64()
		}
	}

	return x
}

// twoClass places label 1 at (0,−1) and label 0 at (0,+1) before the offset.
var twoClass = []Class{
	{Label: 1, Center: []float64{0, -1}},
	{Label: 0, Center: []float64{0, 1}},
}

// TwoClass draws a 2-D two-class domain with a fraction p of label 1.
func TwoClass(n int, p float64, offset []float64, opts ...Option) (Sample, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Sample{}, fmt.Errorf("p=%g: %w", p, ErrInvalidProportions)
	}

	return Mixture(n, twoClass, []float64{p, 1 - p}, offset, opts...)
}

// Scenario is a generated target-shift problem.
type Scenario struct {
	Sources []Sample
	Target  Sample
	// TargetProportions is the true class distribution of the target in
	// ascending label order.
	TargetProportions []float64
}

// Domain describes one two-class domain of a scenario.
type Domain struct {
	N      int
	P      float64 // fraction of label 1
	Offset []float64
}

// TargetShift draws every source domain and the target from its own stream.
func TargetShift(sources []Domain, target Domain, opts ...Option) (Scenario, error) {
	cfg := newConfig(opts...)
	out := Scenario{Sources: make([]Sample, len(sources))}
	for k, d := range sources {
		s, err := twoClassDomain(cfg, k, d)
		if err != nil {
			return Scenario{}, fmt.Errorf("source %d: %w", k, err)
		}
		out.Sources[k] = s
	}
	t, err := twoClassDomain(cfg, len(sources), target)
	if err != nil {
		return Scenario{}, fmt.Errorf("target: %w", err)
	}
	out.Target = t
	out.TargetProportions = []float64{1 - target.P, target.P}

	return out, nil
}

func twoClassDomain(cfg config, stream int, d Domain) (Sample, error) {
	if math.IsNaN(d.P) || d.P < 0 || d.P > 1 {
		return Sample{}, fmt.Errorf("p=%g: %w", d.P, ErrInvalidProportions)
	}

	return mixture(cfg, stream, d.N, twoClass, []float64{d.P, 1 - d.P}, d.Offset)
}

// Classic returns the two-source layout of the reference experiment: source 1
// with 20% of label 1 around (0,2), source 2 with 90% around (0,−2), and a
// target with 40% around (4,0).
func Classic(n int) (sources []Domain, target Domain) {
	return []Domain{
			{N: n, P: 0.2, Offset: []float64{0, 2}},
			{N: n + 1, P: 0.9, Offset: []float64{0, -2}},
		},
		Domain{N: n, P: 0.4, Offset: []float64{4, 0}}
}
