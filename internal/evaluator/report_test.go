package evaluator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

func TestReportRunner(t *testing.T) {
	cfg := testConfig(t)
	base := cfg.Scripts.BaseDir
	runner := &recordingRunner{}

	reports, err := NewReportRunner(cfg)
	require.NoError(t, err)
	reports.WithRunner(runner)

	ctx := context.Background()
	require.NoError(t, reports.Backup(ctx))
	outcome := models.SearchOutcome{Interval: 3, GasLimit: 650, Throughput: 612.5}
	require.NoError(t, reports.AggregateReports(ctx, outcome, 95*time.Second+400*time.Millisecond))

	require.Equal(t, []string{
		"python " + filepath.Join(base, "analyzer/backup-old-results.py"),
		"python " + filepath.Join(base, "analyzer/aggregate-html-reports.py") +
			" --interval 3 --gaslimit 650 --throughput 612.5 --executiontime 95",
	}, runner.calls)
}

func TestReportRunnerErrors(t *testing.T) {
	cfg := testConfig(t)
	scriptErr := errors.New("exit status 2")

	reports, err := NewReportRunner(cfg)
	require.NoError(t, err)
	reports.WithRunner(&recordingRunner{hook: func(string, []string) error { return scriptErr }})

	err = reports.Backup(context.Background())
	require.ErrorIs(t, err, scriptErr)
	require.ErrorContains(t, err, "back up previous results")

	err = reports.AggregateReports(context.Background(), models.SearchOutcome{}, 0)
	require.ErrorIs(t, err, scriptErr)
}
