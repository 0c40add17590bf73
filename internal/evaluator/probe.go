package evaluator

import (
	"context"

	"github.com/GoSim-25-26J-441/optibench/internal/search"
	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// Prober reads the state of a running SUT
type Prober interface {
	Observe(ctx context.Context) (*models.Observation, error)
}

// ProbingEvaluator decorates an evaluator: after every successful run it asks
// the prober for the SUT's head block and hands the observation to the next
// evaluation event. Probe failures are logged and never fail the candidate.
type ProbingEvaluator struct {
	search.Evaluator
	prober  Prober
	pending *models.Observation
}

// NewProbingEvaluator wraps inner with prober
func NewProbingEvaluator(inner search.Evaluator, prober Prober) *ProbingEvaluator {
	return &ProbingEvaluator{Evaluator: inner, prober: prober}
}

func (p *ProbingEvaluator) DeployAndRun(ctx context.Context, c models.Candidate, rebuild bool) error {
	p.pending = nil
	if err := p.Evaluator.DeployAndRun(ctx, c, rebuild); err != nil {
		return err
	}

	obs, err := p.prober.Observe(ctx)
	if err != nil {
		logger.Warn("SUT probe failed", "candidate", c.String(), "error", err)
		return nil
	}
	if obs != nil && obs.GasLimit != uint64(c.GasLimit) {
		logger.Warn("SUT gas limit differs from candidate",
			"candidate_gas_limit", c.GasLimit,
			"observed_gas_limit", obs.GasLimit,
			"head_block", obs.HeadBlock)
	}
	p.pending = obs
	return nil
}

// TakeObservation returns and clears the last observation
func (p *ProbingEvaluator) TakeObservation() *models.Observation {
	obs := p.pending
	p.pending = nil
	return obs
}
