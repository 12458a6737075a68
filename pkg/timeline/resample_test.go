package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSeries(n int, stepMs int64, f func(i int) float64) ([]int64, []float64) {
	ts := make([]int64, n)
	vs := make([]float64, n)
	for i := 0; i < n; i++ {
		ts[i] = 1_503_230_089_052 + int64(i)*stepMs
		vs[i] = f(i)
	}
	return ts, vs
}

func maxDeviation(ts []int64, vs []float64, nodes []int) float64 {
	var nodeSeries Series
	for _, idx := range nodes {
		nodeSeries = append(nodeSeries, Sample{Timestamp: ts[idx], Value: vs[idx]})
	}
	var worst float64
	for i := range ts {
		v, _ := nodeSeries.Interpolate(ts[i])
		worst = math.Max(worst, math.Abs(v-vs[i]))
	}
	return worst
}

func assertStrictSubsequence(t *testing.T, n int, nodes []int) {
	t.Helper()
	require.NotEmpty(t, nodes)
	assert.Equal(t, 0, nodes[0], "first sample must be kept")
	assert.Equal(t, n-1, nodes[len(nodes)-1], "last sample must be kept")
	for i := 1; i < len(nodes); i++ {
		assert.Less(t, nodes[i-1], nodes[i], "nodes must be strictly increasing")
	}
}

func TestResample_Degenerate(t *testing.T) {
	tests := []struct {
		name     string
		ts       []int64
		vs       []float64
		expected []int
	}{
		{name: "empty series", ts: nil, vs: nil, expected: nil},
		{name: "single sample", ts: []int64{10}, vs: []float64{1}, expected: []int{0}},
		{name: "two samples", ts: []int64{10, 20}, vs: []float64{1, 5}, expected: []int{0, 1}},
		{name: "length mismatch", ts: []int64{10, 20}, vs: []float64{1}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resample(tt.ts, tt.vs, 0.1))
		})
	}
}

func TestResample_StraightLines(t *testing.T) {
	t.Run("constant series keeps only the ends", func(t *testing.T) {
		ts, vs := makeSeries(100, 1000, func(int) float64 { return 850 })
		assert.Equal(t, []int{0, 99}, Resample(ts, vs, 0.5))
	})

	t.Run("ramp keeps only the ends", func(t *testing.T) {
		ts, vs := makeSeries(101, 1000, func(i int) float64 { return 0.01 * float64(i) })
		assert.Equal(t, []int{0, 100}, Resample(ts, vs, 0.001))
	})

	t.Run("ramp up then down keeps the apex", func(t *testing.T) {
		ts, vs := makeSeries(101, 1000, func(i int) float64 {
			if i <= 50 {
				return float64(i)
			}
			return float64(100 - i)
		})
		nodes := Resample(ts, vs, 0.5)
		assert.Equal(t, []int{0, 50, 100}, nodes)
		assert.InDelta(t, 0, maxDeviation(ts, vs, nodes), 1e-9)
	})
}

func TestResample_StaysWithinErrorBound(t *testing.T) {
	const eps = 0.05
	ts, vs := makeSeries(400, 2000, func(i int) float64 {
		return 10 * (1 - math.Exp(-float64(i)/40))
	})

	nodes := Resample(ts, vs, eps)
	assertStrictSubsequence(t, len(ts), nodes)
	assert.Less(t, len(nodes), len(ts)/2, "a smooth curve should compress")
	assert.LessOrEqual(t, maxDeviation(ts, vs, nodes), 4*eps)
}

func TestResample_Deterministic(t *testing.T) {
	ts, vs := makeSeries(500, 1000, func(i int) float64 {
		x := float64(i)
		return 600 + 0.2*x + 5*math.Sin(x/15) + 0.3*math.Sin(x*1.7)
	})

	first := Resample(ts, vs, 0.4)
	for run := 0; run < 5; run++ {
		assert.Equal(t, first, Resample(ts, vs, 0.4), "run %d differs", run)
	}
	assertStrictSubsequence(t, len(ts), first)
}

func TestResample_RefinementNeverIncreasesRSS(t *testing.T) {
	ts, vs := makeSeries(300, 1000, func(i int) float64 {
		x := float64(i)
		return 3*math.Sin(x/25) + 0.01*x
	})

	rough := roughNodes(ts, vs, 0.2)
	refined := refineNodes(ts, vs, rough)
	assert.Len(t, refined, len(rough))
	assert.LessOrEqual(t, RSS(ts, vs, refined), RSS(ts, vs, rough)+1e-12)
}

func TestRSS(t *testing.T) {
	ts := []int64{0, 10, 20, 30}
	vs := []float64{0, 2, 2, 0}

	assert.Equal(t, 0.0, RSS(ts, vs, []int{0, 1, 2, 3}))
	// line from (0,0) to (30,0) misses two samples by 2 each
	assert.InDelta(t, 8.0, RSS(ts, vs, []int{0, 3}), 1e-12)
}

func TestSeriesResample(t *testing.T) {
	s := Series{{Timestamp: 0, Value: 0}, {Timestamp: 10, Value: 10}, {Timestamp: 20, Value: 10}}
	assert.Equal(t, s, s.Resample(0.1))

	// a chord flatter than FlatSlope is never split
	pulse := Series{{Timestamp: 0, Value: 0}, {Timestamp: 10, Value: 10}, {Timestamp: 20, Value: 0}}
	assert.Equal(t, Series{pulse[0], pulse[2]}, pulse.Resample(0.1))
	assert.Nil(t, Series{}.Resample(0.1))
}
