package structure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

func TestRun_Thickness(t *testing.T) {
	constant := newRun(t, map[Role]*growth.Channel{
		Ammonia: flux(1, "NH3", flat(2, 0, 10000)...),
	})
	ramp := newRun(t, map[Role]*growth.Channel{
		Ammonia: flux(1, "NH3",
			timeline.Sample{Timestamp: 0, Value: 0},
			timeline.Sample{Timestamp: 10000, Value: 10},
		),
	})
	span := timeline.Interval{Start: 0, End: 10000}

	tests := []struct {
		name     string
		run      *Run
		span     timeline.Interval
		steps    int
		unit     time.Duration
		expected float64
	}{
		{name: "constant rate", run: constant, span: span, expected: 20},
		{name: "constant rate per minute", run: constant, span: span, unit: time.Minute, expected: 2.0 / 6},
		{name: "linear ramp", run: ramp, span: span, expected: 50},
		{name: "linear ramp single step", run: ramp, span: span, steps: 1, expected: 50},
		{name: "partial span", run: constant, span: timeline.Interval{Start: 2500, End: 7500}, steps: 7, expected: 10},
		{name: "zero length", run: constant, span: timeline.Interval{Start: 5000, End: 5000}, expected: 0},
		{name: "nothing growing", run: newRun(t, map[Role]*growth.Channel{}), span: span, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.run.Thickness(tt.span, tt.steps, tt.unit), 1e-9)
		})
	}
}

func TestRun_Thickness_Sums(t *testing.T) {
	// a rate that only exists in the first half must still be counted once
	// the grid has moved past it
	run := newRun(t, map[Role]*growth.Channel{
		Ammonia: flux(1, "NH3",
			timeline.Sample{Timestamp: 0, Value: 4},
			timeline.Sample{Timestamp: 5000, Value: 4},
			timeline.Sample{Timestamp: 5001, Value: 0},
			timeline.Sample{Timestamp: 10000, Value: 0},
		),
	})
	got := run.Thickness(timeline.Interval{Start: 0, End: 10000}, 10, time.Second)
	assert.InDelta(t, 4*5+2, got, 1e-9)
}

func TestCentre(t *testing.T) {
	assert.Equal(t, int64(15), Centre(timeline.Interval{Start: 10, End: 20}))
	assert.Equal(t, int64(10), Centre(timeline.Interval{Start: 10, End: 11}))
}
