package timeline

import (
	"sort"
)

// Curve is a resampled series together with the intervals on which it may
// be queried. A Curve is built once and only read afterwards.
type Curve struct {
	Nodes     Series      `json:"nodes"`
	Intervals IntervalSet `json:"intervals"`
}

// ValueAt returns the interpolated value at t. ok is false when t lies
// outside every active interval.
func (c Curve) ValueAt(t int64) (float64, bool) {
	if _, ok := c.Intervals.Find(t); !ok {
		return 0, false
	}
	return c.Nodes.Interpolate(t)
}

// Active reports whether t lies inside an active interval
func (c Curve) Active(t int64) bool {
	_, ok := c.Intervals.Find(t)
	return ok
}

// Interpolate evaluates the piecewise-linear function through the series at
// t. Outside the series span the nearest end value is held.
func (s Series) Interpolate(t int64) (float64, bool) {
	n := len(s)
	switch {
	case n == 0:
		return 0, false
	case t <= s[0].Timestamp:
		return s[0].Value, true
	case t >= s[n-1].Timestamp:
		return s[n-1].Value, true
	}

	// first node at or after t; s[hi-1].Timestamp < t <= s[hi].Timestamp
	hi := sort.Search(n, func(i int) bool { return s[i].Timestamp >= t })
	p0, p1 := s[hi-1], s[hi]
	if p1.Timestamp == t {
		return p1.Value, true
	}
	if p1.Timestamp == p0.Timestamp {
		return p0.Value, true
	}
	return p0.Value + (p1.Value-p0.Value)*float64(t-p0.Timestamp)/float64(p1.Timestamp-p0.Timestamp), true
}
