package growth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

func constantChannel(t *testing.T, cfg Config, value float64, from, to int64) *Channel {
	t.Helper()
	ch, err := Process(cfg, timeline.Series{{Timestamp: from, Value: value}, {Timestamp: to, Value: value}}, nil)
	require.NoError(t, err)
	return ch
}

func TestEffusionRate(t *testing.T) {
	coef := Coefficients{KFlow: 2e6, EFlow: 12000, KDes: 1e-3, EDes: 500}
	flux := 2e6 * math.Exp(-12000.0/1000)
	desorption := 1e-3 * math.Exp(500.0/800)

	tests := []struct {
		name      string
		value     float64
		substrate float64
		weight    float64
		expected  float64
	}{
		{name: "source off", value: 0, substrate: 800, weight: 1, expected: 0},
		{name: "no desorption", value: 1000, substrate: 800, weight: 0, expected: flux},
		{name: "full desorption", value: 1000, substrate: 800, weight: 1, expected: flux - desorption},
		{name: "half desorption", value: 1000, substrate: 800, weight: 0.5, expected: flux - 0.5*desorption},
		{name: "unknown substrate temperature", value: 1000, substrate: 0, weight: 1, expected: flux},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, EffusionRate(coef, tt.value, tt.substrate, tt.weight), 1e-12)
		})
	}
}

func TestLinearFlowRate(t *testing.T) {
	assert.Equal(t, 0.5, LinearFlowRate(Coefficients{Slope: 0.05}, 10))
	assert.Equal(t, 1.5, LinearFlowRate(Coefficients{Intercept: 1, Slope: 0.05}, 10))
}

func TestChannel_Rate(t *testing.T) {
	half := 0.5
	ga := constantChannel(t, Config{
		ID: 1, Name: "Ga", Model: Effusion, ResamplingError: 0.1,
		Coefficients: Coefficients{KFlow: 10, EFlow: 0, KDes: 1, EDes: 0, DesorptionWeight: &half},
	}, 900, 0, 1000)
	nh3 := constantChannel(t, Config{
		ID: 2, Name: "NH3", Model: LinearFlow, ResamplingError: 0.1,
		Coefficients: Coefficients{Slope: 0.1},
	}, 50, 0, 1000)
	pyro := constantChannel(t, Config{ID: 3, Name: "pyro", ResamplingError: 0.1}, 700, 0, 1000)

	assert.InDelta(t, 10-0.5, ga.Rate(500, 700), 1e-12, "configured weight")
	assert.InDelta(t, 10-1, ga.RateWithWeight(500, 700, 1), 1e-12)
	assert.InDelta(t, 10, ga.RateWithWeight(500, 700, 0), 1e-12)
	assert.InDelta(t, 5, nh3.Rate(500, 700), 1e-12)
	assert.Equal(t, 0.0, pyro.Rate(500, 700), "telemetry has no rate")
	assert.Equal(t, 0.0, nh3.Rate(2000, 700), "absent value gives no rate")

	var unbound *Channel
	assert.Equal(t, 0.0, unbound.Rate(500, 700))
	assert.False(t, unbound.Present(500))
	assert.True(t, unbound.Empty())
}

func TestCoefficients_DesorptionWeightOrDefault(t *testing.T) {
	assert.Equal(t, DefaultDesorptionWeight, Coefficients{}.DesorptionWeightOrDefault())
	zero := 0.0
	assert.Equal(t, 0.0, Coefficients{DesorptionWeight: &zero}.DesorptionWeightOrDefault())
}
