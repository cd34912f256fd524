package sinkhorn_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/otshift/distance"
	"github.com/katalvlaran/otshift/sinkhorn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniform(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, sinkhorn.Uniform(4))
	assert.Empty(t, sinkhorn.Uniform(0))
}

func TestCostAndEntropy(t *testing.T) {
	p := mustDense(t, [][]float64{{0.5, 0.5}, {0, 0}})
	c := mustDense(t, [][]float64{{1, 3}, {7, 7}})

	cost, err := sinkhorn.Cost(p, c)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, cost, 1e-15)
	assert.InDelta(t, math.Log(2), sinkhorn.Entropy(p), 1e-15)

	_, err = sinkhorn.Cost(p, mustDense(t, [][]float64{{1}}))
	assert.Error(t, err)
}

func TestMarginalError(t *testing.T) {
	p := mustDense(t, [][]float64{{0.2, 0.1}, {0.3, 0.4}})
	e, err := sinkhorn.MarginalError(p, []float64{0.3, 0.7}, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0, e, 1e-15)

	e, err = sinkhorn.MarginalError(p, []float64{0.5, 0.5}, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, e, 1e-15)

	_, err = sinkhorn.MarginalError(p, []float64{1}, []float64{0.5, 0.5})
	assert.ErrorIs(t, err, sinkhorn.ErrDimensionMismatch)
}

// TestBarycentric maps a mass-carrying row onto a weighted mean and an empty
// row onto the target centroid.
func TestBarycentric(t *testing.T) {
	p := mustDense(t, [][]float64{{0.1, 0.3}, {0, 0}})
	xt, err := distance.NewPointSet([][]float64{{0, 0}, {4, 8}})
	require.NoError(t, err)

	got, err := sinkhorn.Barycentric(p, xt)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.InDeltaSlice(t, []float64{3, 6}, got.Row(0), 1e-12)
	assert.InDeltaSlice(t, []float64{2, 4}, got.Row(1), 1e-12)

	short, err := distance.NewPointSet([][]float64{{0, 0}})
	require.NoError(t, err)
	_, err = sinkhorn.Barycentric(p, short)
	assert.ErrorIs(t, err, sinkhorn.ErrDimensionMismatch)
}
