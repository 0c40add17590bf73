package search

import (
	"context"
	"errors"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

var errDeploy = errors.New("deploy failed")

// maxTestEvaluations turns a search that fails to terminate into a test failure.
const maxTestEvaluations = 10000

// scriptedEvaluator answers from pure functions of the candidate and records
// every deployment in order.
type scriptedEvaluator struct {
	feasible   func(c models.Candidate) bool
	throughput func(c models.Candidate) float64
	deployed   []models.Candidate
	reads      int
}

func (s *scriptedEvaluator) DeployAndRun(_ context.Context, c models.Candidate, _ bool) error {
	s.deployed = append(s.deployed, c)
	if len(s.deployed) > maxTestEvaluations {
		panic("runaway search: too many evaluations")
	}
	if s.feasible != nil && !s.feasible(c) {
		return errDeploy
	}
	return nil
}

func (s *scriptedEvaluator) ReadThroughput(_ context.Context, c models.Candidate) (float64, error) {
	s.reads++
	if s.throughput == nil {
		return 0, nil
	}
	return s.throughput(c), nil
}

// recordingObserver keeps every event it receives
type recordingObserver struct {
	evaluations []models.Evaluation
	peaks       []models.PeakRecord
}

func (r *recordingObserver) OnEvaluation(ev models.Evaluation) {
	r.evaluations = append(r.evaluations, ev)
}

func (r *recordingObserver) OnPeak(peak models.PeakRecord) {
	r.peaks = append(r.peaks, peak)
}

func (r *recordingObserver) phase(p models.Phase) []models.Evaluation {
	var out []models.Evaluation
	for _, ev := range r.evaluations {
		if ev.Phase == p {
			out = append(out, ev)
		}
	}
	return out
}

func testParams() Params {
	return Params{
		MaxInterval:      10,
		IntervalStep:     1,
		DefaultGas:       1000,
		MinGas:           10,
		GasStep:          50,
		GasLimitAccuracy: 5,
		NumberTrials:     3,
		Sensitivity:      0.05,
	}
}

func gasAtLeast(threshold int) func(models.Candidate) bool {
	return func(c models.Candidate) bool { return c.GasLimit >= threshold }
}

func cappedThroughput(limit float64) func(models.Candidate) float64 {
	return func(c models.Candidate) float64 {
		if float64(c.GasLimit) < limit {
			return float64(c.GasLimit)
		}
		return limit
	}
}
