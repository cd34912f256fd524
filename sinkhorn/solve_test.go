package sinkhorn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/katalvlaran/otshift/matrix"
	"github.com/katalvlaran/otshift/sinkhorn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDense(t testing.TB, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseRows(rows)
	require.NoError(t, err)

	return m
}

func opts(reg float64, method sinkhorn.Method) sinkhorn.Options {
	o := sinkhorn.DefaultOptions()
	o.Reg = reg
	o.Method = method

	return o
}

var methods = []sinkhorn.Method{sinkhorn.Standard, sinkhorn.Log}

// TestSolveMarginals checks that the coupling reproduces both marginals.
func TestSolveMarginals(t *testing.T) {
	c := mustDense(t, [][]float64{
		{0, 1, 4, 9},
		{1, 0, 1, 4},
		{4, 1, 0, 1},
	})
	a := []float64{0.2, 0.3, 0.5}
	b := []float64{0.1, 0.4, 0.25, 0.25}

	for _, method := range methods {
		t.Run(method.String(), func(t *testing.T) {
			res, err := sinkhorn.Solve(a, b, c, opts(0.5, method))
			require.NoError(t, err)
			require.True(t, res.Converged)
			assert.Greater(t, res.Iterations, 0)

			merr, err := sinkhorn.MarginalError(res.Coupling, a, b)
			require.NoError(t, err)
			assert.Less(t, merr, 1e-6)
			require.NoError(t, matrix.ValidateNonNegative(res.Coupling, 0))

			cost, err := sinkhorn.Cost(res.Coupling, c)
			require.NoError(t, err)
			assert.InDelta(t, cost, res.Cost, 1e-12)
		})
	}
}

// TestSolveMethodsAgree compares Standard and Log on the same problem.
func TestSolveMethodsAgree(t *testing.T) {
	c := mustDense(t, [][]float64{{0, 2, 1}, {2, 0, 3}})
	a := []float64{0.6, 0.4}

	std, err := sinkhorn.Solve(a, nil, c, opts(0.3, sinkhorn.Standard))
	require.NoError(t, err)
	lg, err := sinkhorn.Solve(a, nil, c, opts(0.3, sinkhorn.Log))
	require.NoError(t, err)

	ok, err := matrix.AllClose(std.Coupling, lg.Coupling, 1e-6, 1e-9)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestSolveMaxEntropy checks that a constant cost gives the product coupling.
func TestSolveMaxEntropy(t *testing.T) {
	c := mustDense(t, [][]float64{{1, 1, 1}, {1, 1, 1}})
	a := []float64{0.25, 0.75}
	b := []float64{0.5, 0.3, 0.2}

	res, err := sinkhorn.Solve(a, b, c, opts(100, sinkhorn.Standard))
	require.NoError(t, err)
	for i := range a {
		for j := range b {
			got, _ := res.Coupling.At(i, j)
			assert.InDelta(t, a[i]*b[j], got, 1e-9)
		}
	}
}

// TestSolveSmallRegApproachesExactCost shrinks reg on a 2×2 problem whose
// unregularized optimum is 1.6.
func TestSolveSmallRegApproachesExactCost(t *testing.T) {
	c := mustDense(t, [][]float64{{1, 3}, {2, 1}})
	a := []float64{0.7, 0.3}
	b := []float64{0.4, 0.6}

	var gaps []float64
	for _, reg := range []float64{0.5, 0.1, 0.02} {
		res, err := sinkhorn.Solve(a, b, c, opts(reg, sinkhorn.Log))
		require.NoError(t, err)
		gaps = append(gaps, math.Abs(res.Cost-1.6))
	}
	assert.Greater(t, gaps[0], gaps[2])
	assert.Less(t, gaps[2], 1e-2)
}

// TestSolveUniformTarget verifies that a nil b means uniform columns.
func TestSolveUniformTarget(t *testing.T) {
	c := mustDense(t, [][]float64{{0, 1, 2}, {2, 1, 0}})
	res, err := sinkhorn.Solve([]float64{0.5, 0.5}, nil, c, opts(1, sinkhorn.Standard))
	require.NoError(t, err)

	cols, err := matrix.ColSums(res.Coupling)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, cols, 1e-8)
}

// TestSolveNonConvergence runs a single iteration on an ill-conditioned kernel.
func TestSolveNonConvergence(t *testing.T) {
	c := mustDense(t, [][]float64{{0, 1}, {1, 1e6}})
	a := []float64{0.5, 0.5}
	b := []float64{0.5, 0.5}

	o := opts(1e-3, sinkhorn.Standard)
	o.MaxIter = 1
	_, err := sinkhorn.Solve(a, b, c, o)
	require.ErrorIs(t, err, sinkhorn.ErrDegenerateKernel)

	t.Run("relaxed", func(t *testing.T) {
		o := o
		o.Relaxed = true
		res, err := sinkhorn.Solve(a, b, c, o)
		require.NoError(t, err)
		assert.False(t, res.Converged)
		assert.Equal(t, 1, res.Iterations)
		rows, _ := matrix.RowSums(res.Coupling)
		assert.InDeltaSlice(t, []float64{1.0 / 3, 2.0 / 3}, rows, 1e-9)
	})

	t.Run("log", func(t *testing.T) {
		o := opts(1e-3, sinkhorn.Log)
		o.MaxIter = 1
		res, err := sinkhorn.Solve(a, b, c, o)
		require.NoError(t, err)
		assert.False(t, res.Converged)
		rows, _ := matrix.RowSums(res.Coupling)
		assert.InDeltaSlice(t, []float64{0.75, 0.25}, rows, 1e-9)
	})

	t.Run("strict", func(t *testing.T) {
		o := opts(1e-3, sinkhorn.Log)
		o.MaxIter = 1
		o.Strict = true
		res, err := sinkhorn.Solve(a, b, c, o)
		require.ErrorIs(t, err, sinkhorn.ErrNonConvergence)
		require.NotNil(t, res.Coupling)
		assert.False(t, res.Converged)
	})
}

// TestSolveValidation walks through every input error.
func TestSolveValidation(t *testing.T) {
	c := mustDense(t, [][]float64{{0, 1}, {1, 0}})
	good := []float64{0.5, 0.5}
	o := sinkhorn.DefaultOptions()

	cases := []struct {
		name string
		a, b []float64
		c    *matrix.Dense
		o    sinkhorn.Options
		want error
	}{
		{"short a", []float64{1}, good, c, o, sinkhorn.ErrDimensionMismatch},
		{"long b", good, []float64{0.2, 0.3, 0.5}, c, o, sinkhorn.ErrDimensionMismatch},
		{"negative a", []float64{1.5, -0.5}, good, c, o, sinkhorn.ErrInvalidWeights},
		{"nan b", good, []float64{math.NaN(), 1}, c, o, sinkhorn.ErrInvalidWeights},
		{"zero mass", []float64{0, 0}, nil, c, o, sinkhorn.ErrInvalidWeights},
		{"mass mismatch", good, []float64{1, 1}, c, o, sinkhorn.ErrInvalidWeights},
		{"negative cost", good, good, mustDense(t, [][]float64{{0, -1}, {1, 0}}), o, sinkhorn.ErrInvalidCost},
		{"nil cost", good, good, nil, o, sinkhorn.ErrInvalidCost},
		{"zero reg", good, good, c, sinkhorn.Options{MaxIter: 10}, sinkhorn.ErrInvalidReg},
		{"inf reg", good, good, c, sinkhorn.Options{Reg: math.Inf(1), MaxIter: 10}, sinkhorn.ErrInvalidReg},
		{"zero iter", good, good, c, sinkhorn.Options{Reg: 1}, sinkhorn.ErrInvalidOptions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sinkhorn.Solve(tc.a, tc.b, tc.c, tc.o)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// TestSolveCostRoundingNoise accepts entries a hair below zero, as left by
// floating-point cost formulas, unless the cost was built without tolerance.
func TestSolveCostRoundingNoise(t *testing.T) {
	rows := [][]float64{{-1e-13, 1}, {1, 0}}
	good := []float64{0.5, 0.5}

	c := mustDense(t, rows)
	res, err := sinkhorn.Solve(good, good, c, opts(0.5, sinkhorn.Standard))
	require.NoError(t, err)
	assert.True(t, res.Converged)

	strict, err := matrix.NewDenseRows(rows, matrix.WithEpsilon(0))
	require.NoError(t, err)
	_, err = sinkhorn.Solve(good, good, strict, opts(0.5, sinkhorn.Standard))
	assert.ErrorIs(t, err, sinkhorn.ErrInvalidCost)
}

// TestPlanHalfSteps checks that each half-step fits its own marginal exactly
// and that the accessors describe the same coupling.
func TestPlanHalfSteps(t *testing.T) {
	c := mustDense(t, [][]float64{{0, 1, 3}, {2, 0, 1}})
	a := []float64{0.3, 0.7}
	b := []float64{0.2, 0.2, 0.6}

	for _, method := range methods {
		t.Run(method.String(), func(t *testing.T) {
			p, err := sinkhorn.NewPlan(c, opts(0.7, method))
			require.NoError(t, err)
			assert.Equal(t, method, p.Method())

			require.NoError(t, p.FitRows(a))
			assert.InDeltaSlice(t, a, p.RowSums(), 1e-12)
			require.NoError(t, p.FitCols(b))
			assert.InDeltaSlice(t, b, p.ColSums(), 1e-12)

			u, v := p.Scalings()
			want, err := matrix.ScaleRowsCols(p.Kernel(), u, v)
			require.NoError(t, err)
			got, err := p.Coupling()
			require.NoError(t, err)
			ok, err := matrix.AllClose(got, want, 1e-12, 1e-15)
			require.NoError(t, err)
			assert.True(t, ok)

			assert.ErrorIs(t, p.FitRows([]float64{1}), sinkhorn.ErrDimensionMismatch)
			assert.ErrorIs(t, p.FitCols([]float64{1}), sinkhorn.ErrDimensionMismatch)
		})
	}
}

// TestParseMethod covers names and aliases.
func TestParseMethod(t *testing.T) {
	m, err := sinkhorn.ParseMethod("stabilized")
	require.NoError(t, err)
	assert.Equal(t, sinkhorn.Log, m)

	m, err = sinkhorn.ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, sinkhorn.Standard, m)

	_, err = sinkhorn.ParseMethod("greenkhorn")
	assert.ErrorIs(t, err, sinkhorn.ErrInvalidOptions)
}

func BenchmarkSolve(b *testing.B) {
	const n = 100
	rng := rand.New(rand.NewSource(1))
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			rows[i][j] = rng.Float64()
		}
	}
	c := mustDense(b, rows)
	a := sinkhorn.Uniform(n)
	o := opts(0.05, sinkhorn.Standard)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sinkhorn.Solve(a, nil, c, o); err != nil {
			b.Fatal(err)
		}
	}
}
