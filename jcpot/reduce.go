// SPDX-License-Identifier: MIT

package jcpot

import (
	"math"

	"github.com/katalvlaran/otshift/sinkhorn"
	"gonum.org/v1/gonum/floats"
)

// reduce fuses the class masses of the informative domains into the next
// proportion vector. Single-class domains are left out; when no domain is
// informative the result is the mean of their one-hot vectors.
//
// The result is nonnegative and sums to 1. A class that no informative
// domain contains gets proportion 0.
func reduce(domains []*domainState, classes int, rule Combine) []float64 {
	informative := 0
	for _, d := range domains {
		if !d.single {
			informative++
		}
	}
	if informative == 0 {
		return meanOneHot(domains, classes)
	}
	if rule == Geometric {
		return geometric(domains, classes)
	}

	h := make([]float64, classes)
	for c := range h {
		num, den := 0.0, 0.0
		for _, d := range domains {
			if d.single || !d.agg.Has(c) {
				continue
			}
			w := 1.0
			if rule == SampleWeighted {
				w = float64(d.agg.Len())
			}
			num += w * d.local[c]
			den += w
		}
		if den > 0 {
			h[c] = num / den
		}
	}
	if s := floats.Sum(h); s > 0 {
		floats.Scale(1/s, h)
	}

	return h
}

// geometric averages log class masses per class and normalizes with
// log-sum-exp, so masses far below the float64 range still compare.
func geometric(domains []*domainState, classes int) []float64 {
	lh := make([]float64, classes)
	for c := range lh {
		acc, k := 0.0, 0
		for _, d := range domains {
			if d.single || !d.agg.Has(c) {
				continue
			}
			acc += d.logMass[c]
			k++
		}
		if k == 0 {
			lh[c] = math.Inf(-1)
			continue
		}
		lh[c] = acc / float64(k)
	}
	z := floats.LogSumExp(lh)
	h := make([]float64, classes)
	if math.IsInf(z, 0) || math.IsNaN(z) {
		return sinkhorn.Uniform(classes)
	}
	for c, x := range lh {
		h[c] = math.Exp(x - z)
	}

	return h
}

func meanOneHot(domains []*domainState, classes int) []float64 {
	h := make([]float64, classes)
	for _, d := range domains {
		floats.Add(h, d.local)
	}
	floats.Scale(1/float64(len(domains)), h)

	return h
}
