package search

import (
	"context"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// Stop reasons reported in SearchOutcome.StopReason
const (
	StopPlateau     = "no improvement over recent interval peaks"
	StopMaxInterval = "max search interval reached"
)

// Run drives the interval loop: find the minimum interval, then for each
// interval find a starting gas limit and that interval's peak, until the
// peaks stop improving. The best peak is returned.
func (e *Engine) Run(ctx context.Context) (models.SearchOutcome, error) {
	start := time.Now()
	p := e.params

	interval, err := e.FindMinInterval(ctx)
	if err != nil {
		return models.SearchOutcome{}, err
	}

	var (
		history    models.PeakHistory
		throughput []float64
		minGas     int
		stopReason string
	)

	for {
		if p.MaxSearchInterval > 0 && interval > p.MaxSearchInterval {
			stopReason = StopMaxInterval
			break
		}
		logger.Info("performing benchmarks", "interval", interval)

		if len(history) == 0 {
			minGas, err = e.FindMinGasLimit(ctx, interval)
		} else {
			minGas, err = e.EstimateMinGasLimit(ctx, interval, minGas)
		}
		if err != nil {
			return models.SearchOutcome{}, fmt.Errorf("interval %d: %w", interval, err)
		}

		peak, err := e.FindPeak(ctx, interval, minGas)
		if err != nil {
			return models.SearchOutcome{}, fmt.Errorf("interval %d: %w", interval, err)
		}
		history = append(history, peak)
		throughput = append(throughput, peak.Throughput)
		e.observer.OnPeak(peak)

		improving, enough := peaksImproving(e.trend, throughput, p.NumberTrials)
		if !enough {
			logger.Info("more data needed, continuing with next interval", "peaks", len(history))
		} else if !improving {
			stopReason = StopPlateau
			logger.Info("improvement below sensitivity, peak found", "peaks", len(history))
			break
		} else {
			logger.Info("improvement found, continuing with next interval", "peaks", len(history))
		}
		interval += p.IntervalStep
	}

	outcome, err := SelectBest(history)
	if err != nil {
		return models.SearchOutcome{}, err
	}
	outcome.Peaks = history.Clone()
	outcome.Evaluations = e.seq
	outcome.StopReason = stopReason
	outcome.Elapsed = time.Since(start)

	logger.Info("best result found",
		"interval", outcome.Interval,
		"gas_limit", outcome.GasLimit,
		"tps", outcome.Throughput,
		"evaluations", outcome.Evaluations)
	return outcome, nil
}
