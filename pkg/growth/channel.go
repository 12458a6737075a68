// Package growth models the monitored process channels of a growth run:
// their configuration, how their raw readings are reduced to an immutable
// resampled curve, and how a flux source turns a reading into a growth rate.
package growth

import (
	"errors"
	"fmt"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

// Kind selects how a channel's active intervals are built
type Kind string

const (
	// Continuous channels are active over their whole resampled span
	Continuous Kind = "continuous"
	// ShutterGated channels are only active while their shutter is open
	ShutterGated Kind = "shutter"
)

// Model selects the growth-rate function of a channel
type Model string

const (
	// Effusion is a thermal flux source with optional co-desorption
	Effusion Model = "effusion"
	// LinearFlow is a gas source whose flux is linear in the flow
	LinearFlow Model = "linear_flow"
	// NoModel marks telemetry channels (power, temperature) without a rate
	NoModel Model = "none"
)

// ErrInvalidConfig is returned for channel configurations that cannot be processed
var ErrInvalidConfig = errors.New("invalid channel config")

// Coefficients are the calibration constants of a growth-rate model.
//
// Effusion:    rate = KFlow*exp(-EFlow/value) - weight*KDes*exp(EDes/Tsub)
// Linear flow: rate = Intercept + Slope*value
type Coefficients struct {
	KFlow            float64  `json:"k_flow,omitempty" yaml:"k_flow,omitempty"`
	EFlow            float64  `json:"e_flow,omitempty" yaml:"e_flow,omitempty"`
	KDes             float64  `json:"k_des,omitempty" yaml:"k_des,omitempty"`
	EDes             float64  `json:"e_des,omitempty" yaml:"e_des,omitempty"`
	DesorptionWeight *float64 `json:"desorption_weight,omitempty" yaml:"desorption_weight,omitempty"`
	Intercept        float64  `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Slope            float64  `json:"slope,omitempty" yaml:"slope,omitempty"`
}

// Config is the static description of a channel
type Config struct {
	ID              int          `json:"id" yaml:"id"`
	Name            string       `json:"name" yaml:"name"`
	Description     string       `json:"description,omitempty" yaml:"description,omitempty"`
	Column          string       `json:"column,omitempty" yaml:"column,omitempty"`
	Kind            Kind         `json:"kind" yaml:"kind"`
	Model           Model        `json:"model" yaml:"model"`
	Coefficients    Coefficients `json:"coefficients" yaml:"coefficients"`
	MinSpacingMs    int64        `json:"min_spacing_ms,omitempty" yaml:"min_spacing_ms,omitempty"`
	ResamplingError float64      `json:"resampling_error" yaml:"resampling_error"`
}

// Validate checks the configuration and fills in the defaults for kind and model
func (c *Config) Validate() error {
	if c.Kind == "" {
		c.Kind = Continuous
	}
	if c.Model == "" {
		c.Model = NoModel
	}
	switch c.Kind {
	case Continuous, ShutterGated:
	default:
		return fmt.Errorf("%w: channel %d (%s): unknown kind %q", ErrInvalidConfig, c.ID, c.Name, c.Kind)
	}
	switch c.Model {
	case Effusion, LinearFlow, NoModel:
	default:
		return fmt.Errorf("%w: channel %d (%s): unknown growth-rate model %q", ErrInvalidConfig, c.ID, c.Name, c.Model)
	}
	if c.ResamplingError <= 0 {
		return fmt.Errorf("%w: channel %d (%s): resampling error must be positive", ErrInvalidConfig, c.ID, c.Name)
	}
	if c.MinSpacingMs < 0 {
		return fmt.Errorf("%w: channel %d (%s): negative minimum sample spacing", ErrInvalidConfig, c.ID, c.Name)
	}
	return nil
}

// Channel is a processed channel. It is immutable and safe for concurrent reads.
type Channel struct {
	Config   Config              `json:"config"`
	Curve    timeline.Curve      `json:"curve"`
	Shutters timeline.ShutterLog `json:"shutters,omitempty"`
}

// ID returns the channel id
func (c *Channel) ID() int {
	return c.Config.ID
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.Config.Name
}

// ValueAt returns the channel value at t, or ok=false outside its active intervals
func (c *Channel) ValueAt(t int64) (float64, bool) {
	if c == nil {
		return 0, false
	}
	return c.Curve.ValueAt(t)
}

// Present reports whether the channel has a value at t
func (c *Channel) Present(t int64) bool {
	if c == nil {
		return false
	}
	return c.Curve.Active(t)
}

// Empty reports whether the channel had no data at all
func (c *Channel) Empty() bool {
	return c == nil || len(c.Curve.Nodes) == 0
}
