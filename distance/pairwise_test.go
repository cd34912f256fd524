package distance_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/otshift/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPoints(t *testing.T, rows [][]float64) distance.PointSet {
	t.Helper()
	p, err := distance.NewPointSet(rows)
	require.NoError(t, err)

	return p
}

// TestNewPointSetValidation covers empty, ragged and non-finite inputs.
func TestNewPointSetValidation(t *testing.T) {
	_, err := distance.NewPointSet(nil)
	assert.ErrorIs(t, err, distance.ErrEmptyPointSet)

	_, err = distance.NewPointSet([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, distance.ErrDimensionMismatch)

	_, err = distance.NewPointSet([][]float64{{1, math.Inf(1)}})
	assert.ErrorIs(t, err, distance.ErrNonFinite)
}

// TestPointSetImmutable verifies the set copies its input and hands out copies.
func TestPointSetImmutable(t *testing.T) {
	rows := [][]float64{{1, 2}, {3, 4}}
	p := mustPoints(t, rows)
	rows[0][0] = 99

	r := p.Row(0)
	assert.Equal(t, []float64{1, 2}, r)
	r[1] = -1
	assert.Equal(t, []float64{1, 2}, p.Row(0))
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 2, p.Dim())
}

// TestPairwiseMetrics checks every built-in metric on a 3-4-5 triangle.
func TestPairwiseMetrics(t *testing.T) {
	xs := mustPoints(t, [][]float64{{0, 0}, {1, 1}})
	xt := mustPoints(t, [][]float64{{3, 4}})

	cases := []struct {
		metric distance.Metric
		want   []float64
	}{
		{distance.SqEuclidean, []float64{25, 13}},
		{distance.Euclidean, []float64{5, math.Sqrt(13)}},
		{distance.Cityblock, []float64{7, 5}},
		{distance.Chebyshev, []float64{4, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.metric.String(), func(t *testing.T) {
			c, err := distance.Pairwise(xs, xt, tc.metric)
			require.NoError(t, err)
			require.Equal(t, 2, c.Rows())
			require.Equal(t, 1, c.Cols())
			assert.InDeltaSlice(t, tc.want, c.Raw(), 1e-12)
		})
	}
}

// TestPairwiseCosine checks orthogonal, parallel and zero vectors.
func TestPairwiseCosine(t *testing.T) {
	xs := mustPoints(t, [][]float64{{1, 0}, {0, 0}})
	xt := mustPoints(t, [][]float64{{0, 2}, {3, 0}})
	c, err := distance.Pairwise(xs, xt, distance.Cosine)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0, 1, 1}, c.Raw(), 1e-12)
}

// TestPairwiseDimensionMismatch verifies the DimensionMismatch failure.
func TestPairwiseDimensionMismatch(t *testing.T) {
	xs := mustPoints(t, [][]float64{{0, 0}})
	xt := mustPoints(t, [][]float64{{0, 0, 0}})
	_, err := distance.Pairwise(xs, xt, distance.SqEuclidean)
	assert.ErrorIs(t, err, distance.ErrDimensionMismatch)

	_, err = distance.Pairwise(distance.PointSet{}, xt, distance.SqEuclidean)
	assert.ErrorIs(t, err, distance.ErrEmptyPointSet)
}

// TestPairwiseCustom covers user-supplied functions, including invalid output.
func TestPairwiseCustom(t *testing.T) {
	xs := mustPoints(t, [][]float64{{1}, {2}})
	xt := mustPoints(t, [][]float64{{4}})

	cube := distance.Custom("cube", func(a, b []float64) float64 {
		d := math.Abs(a[0] - b[0])
		return d * d * d
	})
	c, err := distance.Pairwise(xs, xt, cube)
	require.NoError(t, err)
	assert.Equal(t, []float64{27, 8}, c.Raw())
	assert.Equal(t, "cube", cube.String())

	signed := distance.Custom("", func(a, b []float64) float64 { return a[0] - b[0] })
	_, err = distance.Pairwise(xs, xt, signed)
	assert.ErrorIs(t, err, distance.ErrInvalidCost)

	assert.Panics(t, func() { distance.Custom("nil", nil) })
}

// TestParseMetric covers names and aliases.
func TestParseMetric(t *testing.T) {
	m, err := distance.ParseMetric("Euclidean")
	require.NoError(t, err)
	assert.Equal(t, distance.Euclidean, m)

	m, err = distance.ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, "sqeuclidean", m.String())

	m, err = distance.ParseMetric("manhattan")
	require.NoError(t, err)
	assert.Equal(t, distance.Cityblock, m)

	_, err = distance.ParseMetric("hamming")
	assert.ErrorIs(t, err, distance.ErrUnknownMetric)
}

// TestNormalizeCost checks the three rescaling modes.
func TestNormalizeCost(t *testing.T) {
	xs := mustPoints(t, [][]float64{{0}, {1}, {3}})
	xt := mustPoints(t, [][]float64{{0}})
	c, err := distance.Pairwise(xs, xt, distance.SqEuclidean) // [0, 1, 9]
	require.NoError(t, err)

	byMax, err := distance.NormalizeCost(c, distance.NormMax)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1.0 / 9, 1}, byMax.Raw(), 1e-15)

	byMedian, err := distance.NormalizeCost(c, distance.NormMedian)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 9}, byMedian.Raw(), 1e-15)

	byLog, err := distance.NormalizeCost(c, distance.NormLog)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, math.Log(2), math.Log(10)}, byLog.Raw(), 1e-15)

	mode, err := distance.ParseNormalization("median")
	require.NoError(t, err)
	assert.Equal(t, distance.NormMedian, mode)
	_, err = distance.ParseNormalization("zscore")
	assert.Error(t, err)
}
