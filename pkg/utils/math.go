package utils

import "math"

// AbsInt returns the absolute value of an integer
func AbsInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// RelativeImprovement returns 1 - prior/current, the fraction by which
// current improves on prior.
//
// A non-positive current has no meaningful ratio: it counts as an infinite
// improvement over a strictly smaller prior (a failure sentinel) and as no
// improvement otherwise.
func RelativeImprovement(prior, current float64) float64 {
	if current <= 0 {
		if prior < current {
			return math.Inf(1)
		}
		return 0
	}
	return 1 - prior/current
}

// ArgMaxFirst returns the index of the first maximum in values, or -1 for an
// empty slice.
func ArgMaxFirst(values []float64) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}
