package search

import (
	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/utils"
)

// ThresholdTrend detects a plateau: a new sample keeps the search going only
// while it improves on at least one recent sample by more than Sensitivity.
// A single regression does not stop the search, a full window without
// improvement does.
type ThresholdTrend struct {
	Sensitivity float64
}

// Improving reports whether current improves on any of priors
func (t ThresholdTrend) Improving(priors []float64, current float64) bool {
	improving := false
	for _, prior := range priors {
		rel := utils.RelativeImprovement(prior, current)
		logger.Debug("relative improvement", "prior", prior, "current", current, "improvement", rel)
		if rel > t.Sensitivity {
			improving = true
		}
	}
	return improving
}

// peaksImproving applies the trend test to the outer interval loop: once more
// than trials peaks are known, the latest peak is compared against the trials
// peaks preceding it.
func peaksImproving(trend ThresholdTrend, throughputs []float64, trials int) (improving bool, enoughData bool) {
	if len(throughputs) <= trials {
		return true, false
	}
	last := len(throughputs) - 1
	return trend.Improving(throughputs[last-trials:last], throughputs[last]), true
}
