package search

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// FindMinInterval scans 1, 1+step, ... up to maxInterval at the default gas
// limit and returns the first interval whose evaluation succeeds.
func (e *Engine) FindMinInterval(ctx context.Context) (int, error) {
	p := e.params
	logger.Info("searching minimum block interval", "max_interval", p.MaxInterval, "step", p.IntervalStep, "gas_limit", p.DefaultGas)

	for interval := 1; interval <= p.MaxInterval; interval += p.IntervalStep {
		res, err := e.evaluate(ctx, models.PhaseMinInterval, models.Candidate{Interval: interval, GasLimit: p.DefaultGas}, false)
		if err != nil {
			return 0, err
		}
		if res.OK() {
			logger.Info("minimum block interval found", "interval", interval)
			return interval, nil
		}
	}

	return 0, fmt.Errorf("%w: tried intervals 1..%d with step %d at gas limit %d; check the setup or the default and step values",
		ErrNoFeasibleInterval, p.MaxInterval, p.IntervalStep, p.DefaultGas)
}
