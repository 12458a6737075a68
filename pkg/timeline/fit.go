package timeline

import (
	"gonum.org/v1/gonum/stat"
)

// Line is a least-squares straight line, Value = Intercept + Slope*(t - Origin)
type Line struct {
	Origin    int64   `json:"origin"`
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
}

// At evaluates the line at t
func (l Line) At(t int64) float64 {
	return l.Intercept + l.Slope*float64(t-l.Origin)
}

// LinearFit fits a straight line to the samples within [start, stop] by
// least squares. With a single sample the line is flat through it; ok is
// false when no sample lies in the range.
func LinearFit(s Series, start, stop int64) (Line, bool) {
	window := s.Between(start, stop)
	switch len(window) {
	case 0:
		return Line{}, false
	case 1:
		return Line{Origin: start, Intercept: window[0].Value}, true
	}

	// x relative to start keeps the normal equations well conditioned
	x := make([]float64, len(window))
	y := make([]float64, len(window))
	for i, smp := range window {
		x[i] = float64(smp.Timestamp - start)
		y[i] = smp.Value
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return Line{Origin: start, Intercept: alpha, Slope: beta}, true
}

// ConstantFit fits a constant to the samples within [start, stop], which is
// their mean. ok is false when no sample lies in the range.
func ConstantFit(s Series, start, stop int64) (float64, bool) {
	window := s.Between(start, stop)
	if len(window) == 0 {
		return 0, false
	}
	return stat.Mean(window.Values(), nil), true
}
