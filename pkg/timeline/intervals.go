package timeline

// ContinuousIntervals returns one interval per pair of consecutive nodes, so
// the set covers the whole resampled span of the series.
func ContinuousIntervals(nodes Series) IntervalSet {
	if len(nodes) < 2 {
		return IntervalSet{}
	}
	intervals := make(IntervalSet, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		intervals = append(intervals, Interval{
			Start: nodes[i-1].Timestamp,
			End:   nodes[i].Timestamp,
		})
	}
	return intervals
}

// GatedIntervals returns the intervals during which the shutter is open.
// Each open run lasts from an open event to the next shutter event, or to the
// last node when no event follows. Node timestamps falling strictly inside a
// run split it into adjoining sub-intervals; closed periods yield nothing.
func GatedIntervals(nodes Series, shutters ShutterLog) IntervalSet {
	if len(nodes) == 0 {
		return IntervalSet{}
	}
	lastNode := nodes[len(nodes)-1].Timestamp

	var intervals IntervalSet
	for i, event := range shutters {
		if !event.Open {
			continue
		}

		end := lastNode
		if i+1 < len(shutters) {
			end = shutters[i+1].Timestamp
		}
		if end <= event.Timestamp {
			continue
		}

		cut := event.Timestamp
		for _, node := range nodes.Between(event.Timestamp+1, end-1) {
			intervals = append(intervals, Interval{Start: cut, End: node.Timestamp})
			cut = node.Timestamp
		}
		intervals = append(intervals, Interval{Start: cut, End: end})
	}
	if intervals == nil {
		return IntervalSet{}
	}
	return intervals
}
