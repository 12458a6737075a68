package structure

import (
	"slices"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

// Boundaries merges the interval starts and ends of all channels into one
// ascending list of cut points without duplicates.
func Boundaries(channels []*growth.Channel) []int64 {
	var cuts []int64
	for _, ch := range channels {
		if ch == nil {
			continue
		}
		cuts = append(cuts, ch.Curve.Intervals.Boundaries()...)
	}
	slices.Sort(cuts)
	return slices.Compact(cuts)
}

// Segments pairs consecutive cut points into layer spans. Adjacent spans
// share their boundary.
func Segments(cuts []int64) []timeline.Interval {
	if len(cuts) < 2 {
		return nil
	}
	spans := make([]timeline.Interval, 0, len(cuts)-1)
	for i := 1; i < len(cuts); i++ {
		spans = append(spans, timeline.Interval{Start: cuts[i-1], End: cuts[i]})
	}
	return spans
}

// Segments returns the layer spans delimited by the structure channels
func (r *Run) Segments() []timeline.Interval {
	return Segments(Boundaries(r.structure))
}
