package synth_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/katalvlaran/otshift/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestTwoClassCountsAndLayout(t *testing.T) {
	s, err := synth.TwoClass(50, 0.2, []float64{0, 2}, synth.WithSigma(0))
	require.NoError(t, err)
	require.Equal(t, 50, s.Points.Len())
	require.Len(t, s.Labels, 50)

	ones := 0
	for i, l := range s.Labels {
		if l == 1 {
			ones++
			assert.Equal(t, []float64{0, 1}, s.Points.Row(i))
		} else {
			assert.Equal(t, []float64{0, 3}, s.Points.Row(i))
		}
	}
	assert.Equal(t, 10, ones)
	assert.Equal(t, 1, s.Labels[0], "label 1 samples come first")
}

// TestTargetShiftDeterministic regenerates the classic scenario from the same seed.
func TestTargetShiftDeterministic(t *testing.T) {
	src, tgt := synth.Classic(50)
	a, err := synth.TargetShift(src, tgt, synth.WithSeed(1985))
	require.NoError(t, err)
	b, err := synth.TargetShift(src, tgt, synth.WithSeed(1985))
	require.NoError(t, err)

	for k := range a.Sources {
		if diff := cmp.Diff(a.Sources[k].Points.Rows(), b.Sources[k].Points.Rows()); diff != "" {
			t.Fatalf("source %d differs (-a +b):\n%s", k, diff)
		}
	}
	assert.Empty(t, cmp.Diff(a.Target.Points.Rows(), b.Target.Points.Rows()))
	assert.Equal(t, []float64{0.6, 0.4}, a.TargetProportions)
	assert.Equal(t, 50, a.Sources[1].Points.Len()) // 45 + 5 of 51

	c, err := synth.TargetShift(src, tgt, synth.WithSeed(7))
	require.NoError(t, err)
	assert.NotEmpty(t, cmp.Diff(a.Target.Points.Rows(), c.Target.Points.Rows()))
}

// TestStreamsAreIndependent checks that adding a source does not move the
// first source's samples.
func TestStreamsAreIndependent(t *testing.T) {
	src, tgt := synth.Classic(20)
	one, err := synth.TargetShift(src[:1], tgt, synth.WithSeed(3))
	require.NoError(t, err)
	two, err := synth.TargetShift(src, tgt, synth.WithSeed(3))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(one.Sources[0].Points.Rows(), two.Sources[0].Points.Rows()))
}

// TestNoiseSpread compares the empirical spread of one blob with sigma.
func TestNoiseSpread(t *testing.T) {
	classes := []synth.Class{{Label: 0, Center: []float64{0}}}
	s, err := synth.Mixture(4000, classes, []float64{1}, []float64{5},
		synth.WithRand(rand.New(rand.NewSource(11))), synth.WithSigma(0.5))
	require.NoError(t, err)

	xs := make([]float64, s.Points.Len())
	for i := range xs {
		xs[i] = s.Points.Row(i)[0]
	}
	mean, std := stat.MeanStdDev(xs, nil)
	assert.InDelta(t, 5, mean, 0.05)
	assert.InDelta(t, 0.5, std, 0.05)
}

func TestErrors(t *testing.T) {
	_, err := synth.TwoClass(0, 0.5, []float64{0, 0}, synth.WithSeed(1))
	assert.ErrorIs(t, err, synth.ErrBadSize)

	_, err = synth.TwoClass(10, 1.5, []float64{0, 0}, synth.WithSeed(1))
	assert.ErrorIs(t, err, synth.ErrInvalidProportions)

	_, err = synth.TwoClass(10, 0.5, []float64{0}, synth.WithSeed(1))
	assert.ErrorIs(t, err, synth.ErrDimensionMismatch)

	_, err = synth.TwoClass(10, 0.5, []float64{0, 0})
	assert.ErrorIs(t, err, synth.ErrNeedRandSource)

	_, err = synth.Mixture(1, []synth.Class{{Center: []float64{0}}}, []float64{0.5}, []float64{0})
	assert.ErrorIs(t, err, synth.ErrBadSize)

	src, _ := synth.Classic(10)
	_, err = synth.TargetShift(src, synth.Domain{N: 10, P: -1, Offset: []float64{0, 0}}, synth.WithSeed(1))
	assert.ErrorIs(t, err, synth.ErrInvalidProportions)

	assert.Panics(t, func() { synth.WithSigma(-1) })
	assert.Panics(t, func() { synth.WithRand(nil) })
}
