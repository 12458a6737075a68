package timeline

import (
	"sort"
)

// Sample is a single reading of a channel, Timestamp in ms since epoch
type Sample struct {
	Timestamp int64   `json:"ts" yaml:"ts"`
	Value     float64 `json:"value" yaml:"value"`
}

// Series is an ordered run of samples with strictly increasing timestamps
type Series []Sample

// ShutterEvent records a shutter switching state. Open is true when the
// shutter lets the flux reach the growth surface.
type ShutterEvent struct {
	Timestamp int64 `json:"ts" yaml:"ts"`
	Open      bool  `json:"open" yaml:"open"`
}

// ShutterLog is an ordered list of shutter events. The shutter is closed
// before the first event.
type ShutterLog []ShutterEvent

// Interval is a closed time range [Start, End] in ms
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether t lies inside the interval, both ends included
func (i Interval) Contains(t int64) bool {
	return t >= i.Start && t <= i.End
}

// Duration returns the length of the interval in ms
func (i Interval) Duration() int64 {
	return i.End - i.Start
}

// IntervalSet is an ordered, non-overlapping list of intervals sorted by Start.
// Adjacent intervals may share an endpoint.
type IntervalSet []Interval

// Find returns the interval containing t. When t is a shared endpoint of two
// adjoining intervals the earlier one is returned.
func (s IntervalSet) Find(t int64) (Interval, bool) {
	// first interval whose end is not before t
	i := sort.Search(len(s), func(i int) bool { return s[i].End >= t })
	if i < len(s) && s[i].Contains(t) {
		return s[i], true
	}
	return Interval{}, false
}

// Boundaries returns every start and end timestamp of the set, ascending and
// without duplicates.
func (s IntervalSet) Boundaries() []int64 {
	out := make([]int64, 0, len(s)+1)
	for _, iv := range s {
		if len(out) == 0 || out[len(out)-1] != iv.Start {
			out = append(out, iv.Start)
		}
		out = append(out, iv.End)
	}
	return out
}

// Span returns the interval from the first start to the last end
func (s IntervalSet) Span() (Interval, bool) {
	if len(s) == 0 {
		return Interval{}, false
	}
	return Interval{Start: s[0].Start, End: s[len(s)-1].End}, true
}

// Timestamps returns the timestamps of the series
func (s Series) Timestamps() []int64 {
	out := make([]int64, len(s))
	for i, smp := range s {
		out[i] = smp.Timestamp
	}
	return out
}

// Values returns the values of the series
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Value
	}
	return out
}

// Pick returns the samples at the given indexes, in order
func (s Series) Pick(indexes []int) Series {
	if len(indexes) == 0 {
		return nil
	}
	out := make(Series, len(indexes))
	for i, idx := range indexes {
		out[i] = s[idx]
	}
	return out
}

// Between returns the samples with start <= Timestamp <= stop
func (s Series) Between(start, stop int64) Series {
	lo := sort.Search(len(s), func(i int) bool { return s[i].Timestamp >= start })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Timestamp > stop })
	if lo >= hi {
		return nil
	}
	return s[lo:hi]
}
