package evaluator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/GoSim-25-26J-441/optibench/pkg/config"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// ReportRunner runs the result housekeeping scripts around a search
type ReportRunner struct {
	scripts config.ScriptsConfig
	runner  Runner
}

// NewReportRunner creates a report runner from a validated configuration
func NewReportRunner(cfg *config.Config) (*ReportRunner, error) {
	scripts, runner, err := newScriptRunner(cfg.Scripts)
	if err != nil {
		return nil, err
	}
	return &ReportRunner{scripts: scripts, runner: runner}, nil
}

// WithRunner replaces the process runner
func (r *ReportRunner) WithRunner(runner Runner) *ReportRunner {
	r.runner = runner
	return r
}

// Backup moves the results of a previous run out of the way
func (r *ReportRunner) Backup(ctx context.Context) error {
	if err := r.runner.Run(ctx, r.scripts.Python, r.scripts.Path(r.scripts.BackupResults)); err != nil {
		return fmt.Errorf("back up previous results: %w", err)
	}
	return nil
}

// AggregateReports builds the final dashboard for the best candidate.
// elapsed is reported in whole seconds.
func (r *ReportRunner) AggregateReports(ctx context.Context, outcome models.SearchOutcome, elapsed time.Duration) error {
	err := r.runner.Run(ctx, r.scripts.Python, r.scripts.Path(r.scripts.AggregateReports),
		"--interval", strconv.Itoa(outcome.Interval),
		"--gaslimit", strconv.Itoa(outcome.GasLimit),
		"--throughput", strconv.FormatFloat(outcome.Throughput, 'f', -1, 64),
		"--executiontime", strconv.FormatInt(int64(elapsed/time.Second), 10))
	if err != nil {
		return fmt.Errorf("aggregate reports: %w", err)
	}
	return nil
}
