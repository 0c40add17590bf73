package search

import (
	"context"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// Evaluator deploys the system under test with a candidate configuration and
// runs the workload against it. Calls block until the external processes have
// exited; the engine never issues two calls concurrently.
type Evaluator interface {
	// DeployAndRun provisions or reconfigures the SUT and executes the
	// workload. A non-nil error is an evaluation failure.
	DeployAndRun(ctx context.Context, c models.Candidate, rebuild bool) error
	// ReadThroughput returns the transactions per second measured by the most
	// recent successful DeployAndRun.
	ReadThroughput(ctx context.Context, c models.Candidate) (float64, error)
}

// ObservationSource is implemented by evaluators that can describe what the
// SUT reported about itself during the last deployment.
type ObservationSource interface {
	TakeObservation() *models.Observation
}
