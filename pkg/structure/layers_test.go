package structure

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

// gaNRun has a continuous ammonia flow over [0, 20000] and a gallium shutter
// open over [5000, 15000].
func gaNRun(t *testing.T) *Run {
	t.Helper()
	gallium, err := growth.Process(growth.Config{
		ID: 1, Name: "Ga", Kind: growth.ShutterGated, Model: growth.LinearFlow,
		Coefficients: growth.Coefficients{Slope: 1}, ResamplingError: 0.1,
	}, flat(1, 0, 20000), timeline.ShutterLog{
		{Timestamp: 5000, Open: true},
		{Timestamp: 15000, Open: false},
	})
	require.NoError(t, err)
	ammonia := flux(2, "NH3", flat(5, 0, 20000)...)

	return newRun(t, map[Role]*growth.Channel{Gallium: gallium, Ammonia: ammonia}, 1, 2)
}

func TestReconstruct(t *testing.T) {
	layers, err := Reconstruct(context.Background(), gaNRun(t), Options{})
	require.NoError(t, err)
	require.Len(t, layers, 3)

	tests := []struct {
		start, stop int64
		typ         MaterialType
		thickness   float64
		active      []int
	}{
		{start: 0, stop: 5000, typ: TypeAmmonia, thickness: 25, active: []int{2}},
		{start: 5000, stop: 15000, typ: TypeInAlGaN, thickness: 10, active: []int{1, 2}},
		{start: 15000, stop: 20000, typ: TypeAmmonia, thickness: 25, active: []int{2}},
	}
	for i, tt := range tests {
		layer := layers[i]
		assert.Equal(t, i, layer.Index)
		assert.Equal(t, tt.start, layer.Start)
		assert.Equal(t, tt.stop, layer.Stop)
		assert.Equal(t, tt.typ, layer.StartMaterial.Type)
		assert.Equal(t, tt.typ, layer.StopMaterial.Type)
		assert.InDelta(t, tt.thickness, layer.NominalThickness, 1e-9)

		var active []int
		for _, cv := range layer.ActiveChannels {
			if cv.ID == heaterPowerID || cv.ID == pyrometerID {
				continue
			}
			active = append(active, cv.ID)
		}
		assert.ElementsMatch(t, tt.active, active, "layer %d", i)
	}

	gan := layers[1]
	assert.Equal(t, "GaN", gan.StartMaterial.Formula())
	assert.InDelta(t, 1, gan.StartMaterial.GrowthRate, 1e-12)
	assert.False(t, gan.StartMaterial.MetalRich)
	assert.Equal(t, int64(10000), gan.StartMaterial.Reference)
	for _, cv := range gan.ActiveChannels {
		require.NotNil(t, cv.Start)
		require.NotNil(t, cv.Stop)
	}
}

func TestReconstruct_Parallel(t *testing.T) {
	run := gaNRun(t)
	serial, err := Reconstruct(context.Background(), run, Options{Parallelism: 1})
	require.NoError(t, err)
	parallel, err := Reconstruct(context.Background(), run, Options{Parallelism: 4, GridSteps: DefaultGridSteps})
	require.NoError(t, err)

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("parallel reconstruction differs (-serial +parallel):\n%s", diff)
	}
}

func TestReconstruct_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Reconstruct(ctx, gaNRun(t), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconstruct_NoStructure(t *testing.T) {
	run := newRun(t, map[Role]*growth.Channel{Ammonia: flux(2, "NH3", flat(5, 0, 20000)...)})
	layers, err := Reconstruct(context.Background(), run, Options{})
	require.NoError(t, err)
	assert.Empty(t, layers)
}
