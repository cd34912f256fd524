package convergence_test

import (
	"math"
	"testing"
	"time"

	"github.com/katalvlaran/otshift/convergence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMonitorConverges(t *testing.T) {
	m := convergence.New(1e-3, 10)
	assert.Equal(t, math.Inf(1), m.Last())

	assert.Equal(t, convergence.Continue, m.Observe(0.5))
	assert.Equal(t, convergence.Continue, m.Observe(0.01))
	assert.Equal(t, convergence.Converged, m.Observe(1e-4))
	// ignored after the stop
	assert.Equal(t, convergence.Converged, m.Observe(1))

	tr := m.Trace()
	assert.Equal(t, []float64{0.5, 0.01, 1e-4}, tr.Errors)
	assert.Equal(t, 3, tr.Iterations)
	assert.Equal(t, convergence.Converged, tr.Stop)
	assert.Equal(t, 1e-4, m.Last())
}

func TestMonitorMaxIter(t *testing.T) {
	m := convergence.New(0, 3)
	for i := 0; i < 2; i++ {
		require.Equal(t, convergence.Continue, m.Observe(1))
	}
	assert.Equal(t, convergence.MaxIterReached, m.Observe(1))
	assert.Equal(t, 3, m.Iterations())
	assert.True(t, m.Stop().Done())
	assert.Equal(t, "max_iter_reached", m.Stop().String())
}

// TestMonitorNaNNeverConverges makes sure a NaN error cannot pass the tolerance.
func TestMonitorNaNNeverConverges(t *testing.T) {
	m := convergence.New(1, 2)
	assert.Equal(t, convergence.Continue, m.Observe(math.NaN()))
	assert.Equal(t, convergence.MaxIterReached, m.Observe(math.NaN()))
}

func TestMonitorDeadline(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	m := convergence.New(0, 0,
		convergence.WithDeadline(start.Add(time.Second)),
		convergence.WithClock(func() time.Time { return now }))

	assert.False(t, m.Expired())
	assert.Equal(t, convergence.Continue, m.Observe(1))
	now = start.Add(2 * time.Second)
	assert.True(t, m.Expired())
	assert.Equal(t, convergence.DeadlineExceeded, m.Observe(1))

	m2 := convergence.New(0, 5)
	assert.Equal(t, convergence.DeadlineExceeded, m2.Abort())
	assert.Equal(t, 0, m2.Iterations())
}

// TestMonitorLogging checks the verbose cadence and the stop line.
func TestMonitorLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := convergence.New(1e-9, 5,
		convergence.WithLogger(zap.New(core)),
		convergence.WithVerbose(true),
		convergence.WithEvery(2),
		convergence.WithName("jcpot"))
	for i := 0; i < 5; i++ {
		m.Observe(1)
	}

	iters := logs.FilterMessage("iteration").All()
	require.Len(t, iters, 3) // 1, 2, 4
	assert.Equal(t, int64(4), iters[2].ContextMap()["iter"])
	assert.Equal(t, "jcpot", iters[0].ContextMap()["solver"])

	stops := logs.FilterMessage("stop").All()
	require.Len(t, stops, 1)
	assert.Equal(t, "max_iter_reached", stops[0].ContextMap()["advice"])

	assert.Panics(t, func() { convergence.WithEvery(0) })
}
