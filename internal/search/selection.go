package search

import (
	"fmt"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
	"github.com/GoSim-25-26J-441/optibench/pkg/utils"
)

// SelectBest returns the peak with the highest throughput. Equal throughputs
// resolve to the one recorded first.
func SelectBest(history models.PeakHistory) (models.SearchOutcome, error) {
	if len(history) == 0 {
		return models.SearchOutcome{}, fmt.Errorf("%w: empty peak history", ErrNoSuccessfulRun)
	}

	values := make([]float64, len(history))
	for i, peak := range history {
		values[i] = peak.Throughput
	}
	best := history[utils.ArgMaxFirst(values)]
	if best.Throughput < 0 {
		return models.SearchOutcome{}, fmt.Errorf("%w: every interval failed", ErrNoSuccessfulRun)
	}

	return models.SearchOutcome{
		Interval:   best.Interval,
		GasLimit:   best.GasLimit,
		Throughput: best.Throughput,
	}, nil
}
