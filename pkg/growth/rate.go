package growth

import (
	"math"
)

// DefaultDesorptionWeight applies when a channel does not set one
const DefaultDesorptionWeight = 1.0

// DesorptionWeightOrDefault returns the configured desorption weight or the default
func (c Coefficients) DesorptionWeightOrDefault() float64 {
	if c.DesorptionWeight == nil {
		return DefaultDesorptionWeight
	}
	return *c.DesorptionWeight
}

// EffusionRate is the flux of an effusion cell at the given cell value
// (usually its temperature) minus the weighted desorption from a substrate
// at substrateTemperature. A zero value means the source is off.
func EffusionRate(c Coefficients, value, substrateTemperature, weight float64) float64 {
	if value == 0 {
		return 0
	}
	rate := c.KFlow * math.Exp(-c.EFlow/value)
	if weight != 0 && c.KDes != 0 && substrateTemperature != 0 {
		rate -= weight * c.KDes * math.Exp(c.EDes/substrateTemperature)
	}
	return rate
}

// LinearFlowRate is the flux of a gas source at the given flow
func LinearFlowRate(c Coefficients, value float64) float64 {
	return c.Intercept + c.Slope*value
}

// Rate returns the growth rate of the channel at t with its own desorption
// weight. Channels without a value at t, and telemetry channels, give 0.
func (c *Channel) Rate(t int64, substrateTemperature float64) float64 {
	if c == nil {
		return 0
	}
	return c.RateWithWeight(t, substrateTemperature, c.Config.Coefficients.DesorptionWeightOrDefault())
}

// RateWithWeight is Rate with an externally chosen desorption weight
func (c *Channel) RateWithWeight(t int64, substrateTemperature, weight float64) float64 {
	v, ok := c.ValueAt(t)
	if !ok {
		return 0
	}
	switch c.Config.Model {
	case Effusion:
		return EffusionRate(c.Config.Coefficients, v, substrateTemperature, weight)
	case LinearFlow:
		return LinearFlowRate(c.Config.Coefficients, v)
	default:
		return 0
	}
}
