package search

import (
	"context"
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
	"github.com/GoSim-25-26J-441/optibench/pkg/utils"
)

// gasBracket is the bisection state: lower is known infeasible (or the
// untested minimum), upper is the next gas limit to try and working is the
// last gas limit known to work.
type gasBracket struct {
	lower   int
	upper   int
	working int
}

// FindMinGasLimit finds the minimum working gas limit for interval to within
// gasLimitAccuracy: an exponential growth phase finds a working upper bound,
// then bisection narrows [lower, working].
func (e *Engine) FindMinGasLimit(ctx context.Context, interval int) (int, error) {
	p := e.params
	logger.Info("searching minimum block gas limit", "interval", interval, "min_gas", p.MinGas)

	b, err := e.growGasBound(ctx, interval)
	if err != nil {
		return 0, err
	}
	logger.Info("working gas limit upper bound found", "interval", interval, "upper_bound", b.working, "lower_bound", b.lower)

	for {
		res, err := e.evaluate(ctx, models.PhaseGasBisection, models.Candidate{Interval: interval, GasLimit: b.upper}, false)
		if err != nil {
			return 0, err
		}
		if gas, done := b.step(res.OK(), p.GasLimitAccuracy); done {
			logger.Info("minimum gas limit bound found", "interval", interval, "gas_limit", gas)
			return gas, nil
		}
		logger.Debug("not inside accuracy bounds", "lower", b.lower, "upper", b.upper, "working", b.working)
	}
}

// growGasBound doubles the gas limit from minGas until an evaluation succeeds.
// The result is the initial bisection bracket.
func (e *Engine) growGasBound(ctx context.Context, interval int) (gasBracket, error) {
	p := e.params
	lower, upper := p.MinGas, p.MinGas

	for attempt := 1; ; attempt++ {
		res, err := e.evaluate(ctx, models.PhaseGasGrowth, models.Candidate{Interval: interval, GasLimit: upper}, false)
		if err != nil {
			return gasBracket{}, err
		}
		if res.OK() {
			break
		}
		if p.MaxBoundAttempts > 0 && attempt >= p.MaxBoundAttempts {
			return gasBracket{}, fmt.Errorf("%w: interval %d, %d growth attempts up to gas limit %d",
				ErrGasBoundNotFound, interval, attempt, upper)
		}
		if upper > math.MaxInt/2 {
			return gasBracket{}, fmt.Errorf("%w: interval %d, gas limit overflow after %d", ErrGasBoundNotFound, interval, upper)
		}
		lower = upper
		upper *= 2
	}

	return gasBracket{
		lower:   lower,
		upper:   (upper + lower) / 2,
		working: upper,
	}, nil
}

// step applies one bisection outcome at b.upper. It returns the minimum gas
// limit and true once a working gas limit is within accuracy of a failed one.
func (b *gasBracket) step(ok bool, accuracy int) (int, bool) {
	if ok {
		if utils.AbsInt(b.upper-b.lower) <= accuracy {
			return b.upper, true
		}
		b.working = b.upper
		b.upper = (b.upper + b.lower) / 2
		return 0, false
	}

	b.lower = b.upper
	b.upper = (b.lower + b.working) / 2
	// No untested gas limit is left between the known-bad and known-good bounds.
	if b.upper == b.lower {
		return b.working, true
	}
	return 0, false
}

// EstimateMinGasLimit derives a starting gas limit for a later interval
// without a full bisection: it retries at the previous interval's minimum,
// adding gasLimitAccuracy after every failure.
func (e *Engine) EstimateMinGasLimit(ctx context.Context, interval, previous int) (int, error) {
	p := e.params
	gas := previous
	logger.Info("calculating minimum gas limit", "interval", interval, "previous_minimum", previous)

	for attempt := 1; ; attempt++ {
		res, err := e.evaluate(ctx, models.PhaseGasEstimate, models.Candidate{Interval: interval, GasLimit: gas}, false)
		if err != nil {
			return 0, err
		}
		if res.OK() {
			logger.Info("minimum gas limit found", "interval", interval, "gas_limit", gas)
			return gas, nil
		}
		if p.MaxBoundAttempts > 0 && attempt >= p.MaxBoundAttempts {
			return 0, fmt.Errorf("%w: interval %d, %d estimate attempts from gas limit %d",
				ErrGasBoundNotFound, interval, attempt, previous)
		}
		gas += p.GasLimitAccuracy
	}
}
