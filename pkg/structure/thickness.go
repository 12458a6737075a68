package structure

import (
	"time"

	"gonum.org/v1/gonum/integrate"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

const (
	// DefaultGridSteps is the number of sub-intervals a layer is split into
	// for thickness integration
	DefaultGridSteps = 100

	// DefaultRateUnit is the time unit growth rates are expressed in
	DefaultRateUnit = time.Second
)

// Thickness integrates the growth rate over span with the trapezoidal rule
// on a grid of steps equal sub-intervals. Presence and substrate temperature
// are taken at the span centre; the rate at each grid node is evaluated at
// the node itself. unit is the time unit of the growth rates.
func (r *Run) Thickness(span timeline.Interval, steps int, unit time.Duration) float64 {
	if steps <= 0 {
		steps = DefaultGridSteps
	}
	if unit < time.Millisecond {
		unit = DefaultRateUnit
	}
	if span.Duration() <= 0 {
		return 0
	}

	ref := Centre(span)
	unitMs := float64(unit.Milliseconds())
	xs := make([]float64, steps+1)
	rates := make([]float64, steps+1)
	for i := 0; i <= steps; i++ {
		t := span.Start + span.Duration()*int64(i)/int64(steps)
		xs[i] = float64(t-span.Start) / unitMs
		rates[i] = r.MaterialAt(t, ref).GrowthRate
	}
	return integrate.Trapezoidal(xs, rates)
}

// Centre returns the middle of the span
func Centre(span timeline.Interval) int64 {
	return span.Start + span.Duration()/2
}
