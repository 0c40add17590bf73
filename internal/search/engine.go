// Package search implements the adaptive two-dimensional search over block
// interval and block gas limit.
//
// Every decision is driven by black-box evaluations: MinIntervalFinder scans
// intervals, GasLimitBoundsFinder grows then bisects towards the minimum
// working gas limit, GasLimitPlateauSearch steps the gas limit until the
// throughput trend flattens, and the interval loop repeats that per interval
// until the per-interval peaks flatten as well.
package search

import (
	"context"
	"time"

	"github.com/GoSim-25-26J-441/optibench/pkg/config"
	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// FailureThroughput is recorded for a gas limit whose evaluation failed.
const FailureThroughput = -1.0

// Params are the search parameters, read-only for the engine's lifetime
type Params struct {
	MaxInterval       int
	IntervalStep      int
	DefaultGas        int
	MinGas            int
	GasStep           int
	GasLimitAccuracy  int
	NumberTrials      int
	Sensitivity       float64
	MaxBoundAttempts  int
	MaxSearchInterval int
}

// ParamsFromConfig extracts search parameters from a validated configuration
func ParamsFromConfig(t config.ToolConfig) Params {
	return Params{
		MaxInterval:       t.MaxInterval,
		IntervalStep:      t.IntervalStep,
		DefaultGas:        t.DefaultGas,
		MinGas:            t.MinGas,
		GasStep:           t.GasStep,
		GasLimitAccuracy:  t.GasLimitAccuracy,
		NumberTrials:      t.NumberTrials,
		Sensitivity:       t.GetSensitivity(),
		MaxBoundAttempts:  t.MaxBoundAttempts,
		MaxSearchInterval: t.MaxSearchInterval,
	}
}

// Engine runs the search. It is not safe for concurrent use: evaluations are
// strictly sequential.
type Engine struct {
	params    Params
	evaluator Evaluator
	observer  Observer
	trend     ThresholdTrend
	seq       int
}

// NewEngine creates a search engine over evaluator
func NewEngine(params Params, evaluator Evaluator) *Engine {
	return &Engine{
		params:    params,
		evaluator: evaluator,
		observer:  nopObserver{},
		trend:     ThresholdTrend{Sensitivity: params.Sensitivity},
	}
}

// WithObserver sets the observer notified of evaluations and peaks
func (e *Engine) WithObserver(observer Observer) *Engine {
	if observer == nil {
		observer = nopObserver{}
	}
	e.observer = observer
	return e
}

// evaluate runs one black-box evaluation. With measure set, the throughput is
// read after a successful run; a read failure turns the whole evaluation into
// a failure. The returned error is non-nil only when ctx is done, which is
// fatal to the search; it carries the cancellation cause.
func (e *Engine) evaluate(ctx context.Context, phase models.Phase, c models.Candidate, measure bool) (models.EvaluationResult, error) {
	if ctx.Err() != nil {
		return models.EvaluationResult{}, context.Cause(ctx)
	}

	logger.Info("benchmarking", "phase", phase, "interval", c.Interval, "gas_limit", c.GasLimit)
	start := time.Now()

	result := models.Success(0)
	if err := e.evaluator.DeployAndRun(ctx, c, false); err != nil {
		result = models.Failure(err)
	} else if measure {
		tps, err := e.evaluator.ReadThroughput(ctx, c)
		if err != nil {
			result = models.Failure(err)
		} else {
			result = models.Success(tps)
		}
	}

	if ctx.Err() != nil {
		return result, context.Cause(ctx)
	}

	e.seq++
	ev := models.Evaluation{
		Seq:       e.seq,
		Phase:     phase,
		Candidate: c,
		Measured:  measure,
		Result:    result,
		Duration:  time.Since(start),
		At:        start,
	}
	if src, ok := e.evaluator.(ObservationSource); ok {
		ev.Observation = src.TakeObservation()
	}
	e.observer.OnEvaluation(ev)

	if result.OK() {
		if measure {
			logger.Info("throughput measured", "interval", c.Interval, "gas_limit", c.GasLimit, "tps", result.Throughput)
		}
	} else {
		logger.Info("failed execution", "interval", c.Interval, "gas_limit", c.GasLimit, "reason", result.Err)
	}
	return result, nil
}
