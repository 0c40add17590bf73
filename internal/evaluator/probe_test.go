package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

type fakeProber struct {
	obs   *models.Observation
	err   error
	calls int
}

func (f *fakeProber) Observe(context.Context) (*models.Observation, error) {
	f.calls++
	return f.obs, f.err
}

type stubEvaluator struct {
	deployErr error
}

func (s stubEvaluator) DeployAndRun(context.Context, models.Candidate, bool) error { return s.deployErr }
func (s stubEvaluator) ReadThroughput(context.Context, models.Candidate) (float64, error) {
	return 42, nil
}

func TestProbingEvaluator(t *testing.T) {
	ctx := context.Background()
	prober := &fakeProber{obs: &models.Observation{HeadBlock: 7, GasLimit: 500}}
	eval := NewProbingEvaluator(stubEvaluator{}, prober)

	c := models.Candidate{Interval: 2, GasLimit: 500}
	require.NoError(t, eval.DeployAndRun(ctx, c, false))
	tps, err := eval.ReadThroughput(ctx, c)
	require.NoError(t, err)
	require.Equal(t, 42.0, tps)

	obs := eval.TakeObservation()
	require.NotNil(t, obs)
	require.Equal(t, uint64(7), obs.HeadBlock)
	require.Nil(t, eval.TakeObservation())
}

func TestProbingEvaluatorSkipsFailedRuns(t *testing.T) {
	deployErr := errors.New("deploy failed")
	prober := &fakeProber{obs: &models.Observation{HeadBlock: 1}}
	eval := NewProbingEvaluator(stubEvaluator{deployErr: deployErr}, prober)

	err := eval.DeployAndRun(context.Background(), models.Candidate{Interval: 1, GasLimit: 1}, false)
	require.ErrorIs(t, err, deployErr)
	require.Zero(t, prober.calls)
	require.Nil(t, eval.TakeObservation())
}

func TestProbingEvaluatorProbeFailure(t *testing.T) {
	prober := &fakeProber{err: errors.New("connection refused")}
	eval := NewProbingEvaluator(stubEvaluator{}, prober)

	require.NoError(t, eval.DeployAndRun(context.Background(), models.Candidate{Interval: 1, GasLimit: 1}, false))
	require.Nil(t, eval.TakeObservation())
}
