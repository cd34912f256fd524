// SPDX-License-Identifier: MIT

package classmass

import (
	"fmt"
	"math"

	"github.com/katalvlaran/otshift/matrix"
	"gonum.org/v1/gonum/floats"
)

// massFloor is the smallest present-class mass Marginal will renormalize by.
const massFloor = 1e-300

// Aggregator holds D1 and D2 for one labeled domain.
type Aggregator struct {
	n       int
	classes []int // per-sample class index
	counts  []int
	present []int
	d1, d2  *matrix.Dense
}

// New builds the aggregator of a domain with n samples.
//
// Errors: ErrEmptyLabels (n == 0), ErrLabelLength, ErrUnknownClass.
func New(n int, labels []int, enc *Encoder) (*Aggregator, error) {
	if n == 0 || len(labels) == 0 {
		return nil, ErrEmptyLabels
	}
	if len(labels) != n {
		return nil, fmt.Errorf("%d labels for %d samples: %w", len(labels), n, ErrLabelLength)
	}
	idx, err := enc.Encode(labels)
	if err != nil {
		return nil, err
	}
	nc := enc.Classes()

	d1, err := matrix.NewDense(n, nc)
	if err != nil {
		return nil, err
	}
	counts := make([]int, nc)
	for i, c := range idx {
		if err = d1.Set(i, c, 1); err != nil {
			return nil, err
		}
		counts[c]++
	}
	inv := make([]float64, nc)
	var present []int
	for c, k := range counts {
		if k > 0 {
			inv[c] = 1 / float64(k)
			present = append(present, c)
		}
	}
	scaled, err := matrix.ScaleCols(d1, inv)
	if err != nil {
		return nil, err
	}
	d2, err := matrix.Transpose(scaled)
	if err != nil {
		return nil, err
	}

	return &Aggregator{n: n, classes: idx, counts: counts, present: present, d1: d1, d2: d2}, nil
}

// Len returns the number of samples.
func (a *Aggregator) Len() int { return a.n }

// Classes returns C.
func (a *Aggregator) Classes() int { return len(a.counts) }

// D1 returns a copy of the n×C one-hot matrix.
func (a *Aggregator) D1() *matrix.Dense { return a.d1.Copy() }

// D2 returns a copy of the C×n class-averaging matrix.
func (a *Aggregator) D2() *matrix.Dense { return a.d2.Copy() }

// Counts returns the number of samples per class.
func (a *Aggregator) Counts() []int { return append([]int(nil), a.counts...) }

// Present returns the indices of classes with at least one sample, ascending.
func (a *Aggregator) Present() []int { return append([]int(nil), a.present...) }

// Has reports whether class c has samples in this domain.
func (a *Aggregator) Has(c int) bool { return c >= 0 && c < len(a.counts) && a.counts[c] > 0 }

// SingleClass reports whether every sample shares one class. Such a domain
// carries no information about class proportions.
func (a *Aggregator) SingleClass() bool { return len(a.present) == 1 }

// OneHot returns the indicator of the domain's only class, or false when the
// domain has several classes.
func (a *Aggregator) OneHot() ([]float64, bool) {
	if !a.SingleClass() {
		return nil, false
	}
	out := make([]float64, len(a.counts))
	out[a.present[0]] = 1

	return out, true
}

// Empirical returns the domain's own class frequencies n_c / n.
func (a *Aggregator) Empirical() []float64 {
	out := make([]float64, len(a.counts))
	for c, k := range a.counts {
		out[c] = float64(k) / float64(a.n)
	}

	return out
}

// Marginal returns the sample weights D2ᵀ·h for the class distribution h,
// after restricting h to the present classes and renormalizing it there, so
// the result always sums to 1. When h puts no mass on any present class the
// present classes share the mass evenly.
func (a *Aggregator) Marginal(h []float64) ([]float64, error) {
	if len(h) != len(a.counts) {
		return nil, fmt.Errorf("%d proportions for %d classes: %w", len(h), len(a.counts), matrix.ErrDimensionMismatch)
	}
	w := make([]float64, len(h))
	for _, c := range a.present {
		w[c] = h[c]
	}
	if s := floats.Sum(w); s > massFloor {
		floats.Scale(1/s, w)
	} else {
		for _, c := range a.present {
			w[c] = 1 / float64(len(a.present))
		}
	}

	return matrix.MatTVec(a.d2, w)
}

// ClassMass returns D1ᵀ·mass, the total sample mass per class.
func (a *Aggregator) ClassMass(mass []float64) ([]float64, error) {
	return matrix.MatTVec(a.d1, mass)
}

// LogClassMass returns log(D1ᵀ·exp(logMass)) computed with log-sum-exp, so
// per-class masses below the float64 range keep their relative order.
// Absent classes get −Inf.
func (a *Aggregator) LogClassMass(logMass []float64) ([]float64, error) {
	if len(logMass) != a.n {
		return nil, fmt.Errorf("%d masses for %d samples: %w", len(logMass), a.n, matrix.ErrDimensionMismatch)
	}
	groups := make([][]float64, len(a.counts))
	for i, c := range a.classes {
		groups[c] = append(groups[c], logMass[i])
	}
	out := make([]float64, len(a.counts))
	for c, g := range groups {
		if len(g) == 0 {
			out[c] = math.Inf(-1)
			continue
		}
		out[c] = floats.LogSumExp(g)
	}

	return out, nil
}

// Class returns the class index of sample i.
func (a *Aggregator) Class(i int) int { return a.classes[i] }
