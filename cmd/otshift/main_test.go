package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/katalvlaran/otshift/distance"
	"github.com/katalvlaran/otshift/jcpot"
	"github.com/katalvlaran/otshift/sinkhorn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

const problemYAML = `
reg: 0.5
max_iter: 5
metric: sqeuclidean
combine: arithmetic
workers: 2
time_limit: 30s
sources:
  - points: [[0, 1], [0, 1.2], [0, 3], [0, 3.1], [0, 2.9]]
    labels: [1, 1, 0, 0, 0]
  - points: [[0, -3], [0, -2.9], [0, -1]]
    labels: [1, 1, 0]
target:
  points: [[4, -1], [4, -0.9], [4, 1], [4, 1.1]]
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "problem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()

	return out.String(), err
}

func TestLoadProblem(t *testing.T) {
	p, err := LoadProblem(writeFile(t, problemYAML))
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.Reg)
	assert.Equal(t, 5, p.MaxIter)
	assert.Equal(t, jcpot.DefaultTol, p.Tol, "missing keys keep defaults")
	assert.Equal(t, 30*time.Second, p.TimeLimit)
	require.Len(t, p.Sources, 2)

	opts, err := p.JCPOT()
	require.NoError(t, err)
	assert.Equal(t, jcpot.Arithmetic, opts.Combine)
	assert.Equal(t, sinkhorn.Log, opts.Method)
	assert.Equal(t, distance.SqEuclidean.String(), opts.Metric.String())
	assert.Equal(t, 2, opts.Workers)

	sources, target, err := p.Domains()
	require.NoError(t, err)
	assert.Equal(t, 5, sources[0].Points.Len())
	assert.Equal(t, []int{1, 1, 0}, sources[1].Labels)
	assert.Equal(t, 4, target.Len())
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadProblem(writeFile(t, "reg: 1\nregularization: 2\n"))
	assert.ErrorContains(t, err, "regularization")

	_, err = LoadProblem(writeFile(t, ""))
	assert.ErrorIs(t, err, errNoDocument)

	_, err = LoadProblem(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	p, err := LoadProblem(writeFile(t, "metric: hamming\n"))
	require.NoError(t, err)
	_, err = p.JCPOT()
	assert.ErrorIs(t, err, distance.ErrUnknownMetric)

	p.Metric, p.Combine = "", "median"
	_, err = p.JCPOT()
	assert.ErrorIs(t, err, jcpot.ErrInvalidOptions)

	tr, err := LoadTransport(writeFile(t, "method: newton\n"))
	require.NoError(t, err)
	_, err = tr.Sinkhorn()
	assert.ErrorIs(t, err, sinkhorn.ErrInvalidOptions)
}

func TestTransportCostFromPoints(t *testing.T) {
	tr, err := LoadTransport(writeFile(t, `
metric: cityblock
normalize: max
source: [[0, 0], [1, 0]]
target: [[0, 1], [3, 1]]
`))
	require.NoError(t, err)
	c, err := tr.CostMatrix()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 1, 0.5, 0.75}, c.Raw())
}

func TestSinkhornCommand(t *testing.T) {
	path := writeFile(t, `
reg: 0.05
a: [0.5, 0.5]
cost: [[0, 1], [1, 0]]
`)
	out, err := run(t, "sinkhorn", "--config", path)
	require.NoError(t, err)

	var rep transportReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.Converged)
	assert.InDelta(t, 0, rep.Cost, 1e-6)
	require.Len(t, rep.Coupling, 2)
	assert.InDelta(t, 0.5, rep.Coupling[0][0], 1e-6)
	assert.InDelta(t, 0.5, rep.Coupling[1][1], 1e-6)

	_, err = run(t, "sinkhorn", "--config", path, "--reg", "-1")
	assert.ErrorIs(t, err, sinkhorn.ErrInvalidReg)
}

func TestFitCommand(t *testing.T) {
	out, err := run(t, "fit", "-c", writeFile(t, problemYAML), "--log", "--combine", "geometric")
	require.NoError(t, err)

	var rep fitReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep))
	assert.Equal(t, []int{0, 1}, rep.Classes)
	require.Len(t, rep.Proportions, 2)
	assert.InDelta(t, 1, floats.Sum(rep.Proportions), 1e-9)
	assert.GreaterOrEqual(t, rep.Iterations, 1)
	assert.LessOrEqual(t, rep.Iterations, 5)
	assert.Len(t, rep.Errors, rep.Iterations)
	assert.Len(t, rep.TargetLabels, 4)
	require.Len(t, rep.MarginalErr, 2)
	for _, e := range rep.MarginalErr {
		assert.Less(t, e, jcpot.DefaultPolishTol)
	}

	_, err = run(t, "fit")
	assert.Error(t, err, "--config is required")
}

func TestDemoCommand(t *testing.T) {
	out, err := run(t, "demo", "--n", "20", "--reg", "0.1", "--max-iter", "20", "--seed", "1")
	require.NoError(t, err)

	var rep demoReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep))
	assert.Equal(t, int64(1), rep.Seed)
	assert.Equal(t, []float64{0.6, 0.4}, rep.True)
	require.Len(t, rep.Estimated, 2)
	assert.InDelta(t, 1, floats.Sum(rep.Estimated), 1e-9)
	assert.Len(t, rep.OracleCost, 2)
	assert.Len(t, rep.EstimatedCost, 2)
	assert.True(t, rep.Accuracy >= 0 && rep.Accuracy <= 1)
}
