package timeline

import (
	"math"
)

// Resampling constants
const (
	// MaxRefinementPasses bounds the number of node refinement passes
	MaxRefinementPasses = 10

	// FlatSlope is the slope (units per ms) under which a segment is treated
	// as flat and never split: 0.001 units per minute.
	FlatSlope = 0.001 / 60000

	// refinementPatience is the number of consecutive non-improving steps
	// after which a node search turns around or stops.
	refinementPatience = 5

	// minPassGain is the RSS ratio a refinement pass has to beat for another
	// pass to run (10% improvement).
	minPassGain = 0.9
)

// Resample finds the nodes of a piecewise-linear approximation of the
// tabulated data (timestamps, values) that stays within resamplingError of
// every sample. It returns the indexes of the retained samples; the first and
// last index are always part of the result. An empty input yields nil.
func Resample(timestamps []int64, values []float64, resamplingError float64) []int {
	n := len(timestamps)
	if n == 0 || len(values) != n {
		return nil
	}
	if n == 1 {
		return []int{0}
	}

	nodes := roughNodes(timestamps, values, resamplingError)
	prevRSS := RSS(timestamps, values, nodes)
	for pass := 0; pass < MaxRefinementPasses; pass++ {
		nodes = refineNodes(timestamps, values, nodes)
		rss := RSS(timestamps, values, nodes)
		if rss >= minPassGain*prevRSS {
			break
		}
		prevRSS = rss
	}
	return nodes
}

// Resample returns the subsequence of the series kept by Resample
func (s Series) Resample(resamplingError float64) Series {
	return s.Pick(Resample(s.Timestamps(), s.Values(), resamplingError))
}

// roughNodes grows a segment from an anchor until one of the samples it
// spans deviates from the segment line by more than resamplingError; the
// sample before the cursor then becomes a node and the new anchor.
func roughNodes(ts []int64, vs []float64, resamplingError float64) []int {
	nodes := make([]int, 0, 16)
	anchor := 0
	last := len(ts) - 1
	for i := 1; i <= last; i++ {
		k, ok := slope(ts, vs, anchor, i)
		if ok && math.Abs(k) > FlatSlope {
			for j := anchor; j < i; j++ {
				if math.Abs(vs[j]-(vs[anchor]+k*float64(ts[j]-ts[anchor]))) > resamplingError {
					nodes = append(nodes, anchor)
					anchor = i - 1
					break
				}
			}
		}
	}
	return append(nodes, anchor, last)
}

// refineNodes moves every interior node to the position that minimises the
// residuals of its two adjacent segments. The left neighbour is the already
// refined node, the right neighbour is still the rough one.
func refineNodes(ts []int64, vs []float64, rough []int) []int {
	refined := make([]int, 0, len(rough))
	refined = append(refined, rough[0])
	for i := 1; i < len(rough)-1; i++ {
		left, right := refined[i-1], rough[i+1]
		refined = append(refined, bestNode(ts, vs, left, rough[i], right))
	}
	return append(refined, rough[len(rough)-1])
}

// bestNode searches forward from start and, once the search stalls, backward
// from start, keeping the position with the lowest local RSS.
func bestNode(ts []int64, vs []float64, left, start, right int) int {
	local := func(p int) float64 {
		return RSS(ts, vs, []int{left, p, right})
	}

	best := start
	startRSS := local(start)
	bestRSS := startRSS

	for _, step := range []int{1, -1} {
		pos := start
		prev := startRSS
		stalls := 0
		for stalls < refinementPatience {
			pos += step
			if pos <= left || pos >= right {
				break
			}
			rss := local(pos)
			if rss < prev {
				stalls = 0
			} else {
				stalls++
			}
			if rss < bestRSS {
				best, bestRSS = pos, rss
			}
			prev = rss
		}
	}
	return best
}

// RSS is the residual sum of squares between the samples and the
// piecewise-linear function through the given nodes.
func RSS(ts []int64, vs []float64, nodes []int) float64 {
	var sum float64
	for i := 1; i < len(nodes); i++ {
		from, to := nodes[i-1], nodes[i]
		k, ok := slope(ts, vs, from, to)
		if !ok {
			continue
		}
		for j := from; j < to; j++ {
			d := vs[j] - (vs[from] + k*float64(ts[j]-ts[from]))
			sum += d * d
		}
	}
	return sum
}

// slope of the line through samples a and b; ok is false when both samples
// share a timestamp.
func slope(ts []int64, vs []float64, a, b int) (float64, bool) {
	dt := float64(ts[b] - ts[a])
	if dt == 0 {
		return 0, false
	}
	return (vs[b] - vs[a]) / dt, true
}
