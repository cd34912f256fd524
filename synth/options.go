// SPDX-License-Identifier: MIT
// Package: otshift/synth
//
// options.go: functional options and resolved configuration.
//
// Contract:
//   • Option constructors validate and panic on meaningless inputs;
//     generators themselves never panic.
//   • Determinism is explicit: randomness comes only from WithSeed or WithRand.
//   • Defaults: sigma = DefaultSigma, no RNG (noise-free unless seeded or sigma=0).

package synth

import "math/rand"

// DefaultSigma is the per-coordinate standard deviation of every class blob.
const DefaultSigma = 0.3

// Option customizes a generator by mutating its config.
type Option func(*config)

type config struct {
	rng   *rand.Rand
	seed  int64
	sigma float64
}

// WithSeed seeds a fresh deterministic RNG.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.seed = seed
		c.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand provides an explicit RNG. Panics on nil.
func WithRand(r *rand.Rand) Option {
	if r == nil {
		panic("synth: WithRand(nil)")
	}
	return func(c *config) {
		c.seed = r.Int63()
		c.rng = r
	}
}

// WithSigma sets the blob standard deviation. Panics if sigma < 0.
// Sigma 0 places every sample exactly on its class center and needs no RNG.
func WithSigma(sigma float64) Option {
	if sigma < 0 {
		panic("synth: WithSigma(sigma<0)")
	}
	return func(c *config) { c.sigma = sigma }
}

func newConfig(opts ...Option) config {
	cfg := config{sigma: DefaultSigma}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// stream returns the RNG of domain k: independent of how many other domains
// are generated, and nil when the config is noise-free.
func (c config) stream(k int) *rand.Rand {
	if c.rng == nil {
		return nil
	}

	return rand.New(rand.NewSource(deriveSeed(c.seed, uint64(k))))
}

// deriveSeed mixes a parent seed and a stream id with the SplitMix64 finalizer.
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return int64(x)
}
