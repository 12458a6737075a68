package growth

import (
	"errors"
	"fmt"
	"math"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

var (
	// ErrMalformedSample marks a reading that is not a finite number
	ErrMalformedSample = errors.New("malformed sample")
	// ErrNoShutter is returned when a shutter event targets a continuous channel
	ErrNoShutter = errors.New("channel has no shutter")
)

// Recorder accumulates the raw readings of one channel during ingestion.
// Readings closer than the configured minimum spacing to the last accepted
// one are dropped.
type Recorder struct {
	config   Config
	samples  timeline.Series
	shutters timeline.ShutterLog
}

// NewRecorder returns a recorder for a validated copy of cfg
func NewRecorder(cfg Config) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Recorder{config: cfg}, nil
}

// Config returns the channel configuration
func (r *Recorder) Config() Config {
	return r.config
}

// Len returns the number of accepted samples
func (r *Recorder) Len() int {
	return len(r.samples)
}

// Samples returns the accepted raw samples
func (r *Recorder) Samples() timeline.Series {
	return r.samples
}

// Shutters returns the recorded shutter events
func (r *Recorder) Shutters() timeline.ShutterLog {
	return r.shutters
}

// Add appends a reading. It reports false when the reading was dropped for
// being too close to (or not after) the last accepted one, and
// ErrMalformedSample for non-finite values.
func (r *Recorder) Add(ts int64, value float64) (bool, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false, fmt.Errorf("%w: channel %s at %d", ErrMalformedSample, r.config.Name, ts)
	}
	if n := len(r.samples); n > 0 {
		last := r.samples[n-1].Timestamp
		if ts <= last || ts < last+r.config.MinSpacingMs {
			return false, nil
		}
	}
	r.samples = append(r.samples, timeline.Sample{Timestamp: ts, Value: value})
	return true, nil
}

// ShutterOpen reports the shutter state after the last recorded event
func (r *Recorder) ShutterOpen() bool {
	if n := len(r.shutters); n > 0 {
		return r.shutters[n-1].Open
	}
	return false
}

// SetShutter records a shutter state change. Events repeating the current
// state or before the last event are ignored. A change at the timestamp of
// the last event cancels that event, leaving the shutter in the new state
// from that instant.
func (r *Recorder) SetShutter(ts int64, open bool) error {
	if r.config.Kind != ShutterGated {
		return fmt.Errorf("%w: %s", ErrNoShutter, r.config.Name)
	}
	if open == r.ShutterOpen() {
		return nil
	}
	if n := len(r.shutters); n > 0 {
		switch last := r.shutters[n-1]; {
		case ts < last.Timestamp:
			return nil
		case ts == last.Timestamp:
			// events alternate, so the one before already holds the new state
			r.shutters = r.shutters[:n-1]
			return nil
		}
	}
	r.shutters = append(r.shutters, timeline.ShutterEvent{Timestamp: ts, Open: open})
	return nil
}

// Process resamples the recorded readings and builds the active intervals
func (r *Recorder) Process() (*Channel, error) {
	return Process(r.config, r.samples, r.shutters)
}

// Process turns raw readings into an immutable channel. A channel without
// readings is valid and simply never active.
func Process(cfg Config, samples timeline.Series, shutters timeline.ShutterLog) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nodes := samples.Resample(cfg.ResamplingError)
	ch := &Channel{Config: cfg, Curve: timeline.Curve{Nodes: nodes}}
	switch cfg.Kind {
	case ShutterGated:
		ch.Shutters = append(timeline.ShutterLog(nil), shutters...)
		ch.Curve.Intervals = timeline.GatedIntervals(nodes, ch.Shutters)
	default:
		ch.Curve.Intervals = timeline.ContinuousIntervals(nodes)
	}
	return ch, nil
}
