package evaluator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

func TestScriptEvaluatorDeployAndRun(t *testing.T) {
	cfg := testConfig(t)
	base := cfg.Scripts.BaseDir
	runner := &recordingRunner{}

	eval, err := NewScriptEvaluator(cfg, logger.VerbosityMilestones)
	require.NoError(t, err)
	eval.WithRunner(runner)

	require.NoError(t, eval.DeployAndRun(context.Background(), models.Candidate{Interval: 2, GasLimit: 3000000}, false))
	require.Equal(t, []string{
		"bash " + filepath.Join(base, "sut/deploy-sut.sh") + " 4 2 3000000 0",
		"python " + filepath.Join(base, "workload/run-caliper.py") + " --interval 2 --gaslimit 3000000",
	}, runner.calls)
}

func TestScriptEvaluatorQuietDeploy(t *testing.T) {
	cfg := testConfig(t)
	runner := &recordingRunner{}

	eval, err := NewScriptEvaluator(cfg, logger.VerbosityResult)
	require.NoError(t, err)
	eval.WithRunner(runner)

	require.NoError(t, eval.DeployAndRun(context.Background(), models.Candidate{Interval: 1, GasLimit: 10}, true))
	require.Contains(t, runner.calls[0], " 4 1 10 1 --no-user-output-enabled")
}

func TestScriptEvaluatorDeployFailureSkipsWorkload(t *testing.T) {
	cfg := testConfig(t)
	deployErr := &Failure{Command: "bash deploy-sut.sh", ExitCode: 1, Err: errors.New("exit status 1")}
	runner := &recordingRunner{hook: func(name string, _ []string) error {
		if name == "bash" {
			return deployErr
		}
		return nil
	}}

	eval, err := NewScriptEvaluator(cfg, logger.VerbosityFull)
	require.NoError(t, err)
	eval.WithRunner(runner)

	err = eval.DeployAndRun(context.Background(), models.Candidate{Interval: 1, GasLimit: 10}, false)
	require.ErrorIs(t, err, deployErr)
	require.Len(t, runner.calls, 1)
}

func TestScriptEvaluatorBuildInfrastructure(t *testing.T) {
	cfg := testConfig(t)
	runner := &recordingRunner{}

	eval, err := NewScriptEvaluator(cfg, logger.VerbosityMilestones)
	require.NoError(t, err)
	eval.WithRunner(runner)

	require.NoError(t, eval.BuildInfrastructure(context.Background()))
	require.Len(t, runner.calls, 1)
	require.Contains(t, runner.calls[0], "deploy-sut.sh 4 10 8000000 1")
}

func TestScriptEvaluatorReadThroughput(t *testing.T) {
	cfg := testConfig(t)
	tpsFile := filepath.Join(cfg.Scripts.BaseDir, "last-tps")
	runner := &recordingRunner{hook: func(_ string, args []string) error {
		return os.WriteFile(tpsFile, []byte("412.5\n"), 0o644)
	}}

	eval, err := NewScriptEvaluator(cfg, logger.VerbosityMilestones)
	require.NoError(t, err)
	eval.WithRunner(runner)

	tps, err := eval.ReadThroughput(context.Background(), models.Candidate{Interval: 3, GasLimit: 500})
	require.NoError(t, err)
	require.Equal(t, 412.5, tps)
	require.Equal(t, []string{
		"python " + filepath.Join(cfg.Scripts.BaseDir, "analyzer/get-last-throughput.py") + " --interval 3 --gaslimit 500",
	}, runner.calls)
}

func TestScriptEvaluatorReadThroughputStaleFile(t *testing.T) {
	cfg := testConfig(t)
	tpsFile := filepath.Join(cfg.Scripts.BaseDir, "last-tps")
	require.NoError(t, os.WriteFile(tpsFile, []byte("999"), 0o644))

	eval, err := NewScriptEvaluator(cfg, logger.VerbosityMilestones)
	require.NoError(t, err)
	eval.WithRunner(&recordingRunner{})

	_, err = eval.ReadThroughput(context.Background(), models.Candidate{Interval: 1, GasLimit: 10})
	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	require.Equal(t, tpsFile, readErr.Path)
}

func TestScriptEvaluatorWithShellScripts(t *testing.T) {
	requireShell(t)
	cfg := testConfig(t)
	base := cfg.Scripts.BaseDir
	cfg.Scripts.Shell = "sh"
	cfg.Scripts.Python = "sh"
	writeScript(t, base, cfg.Scripts.DeploySUT, `[ "$4" -ge 100 ] || { echo "gas limit too low" 1>&2; exit 1; }`)
	writeScript(t, base, cfg.Scripts.RunWorkload, `echo "workload $2 $4"`)
	writeScript(t, base, cfg.Scripts.LastThroughput, `echo "$4" > last-tps`)

	eval, err := NewScriptEvaluator(cfg, logger.VerbosityFull)
	require.NoError(t, err)
	ctx := context.Background()

	err = eval.DeployAndRun(ctx, models.Candidate{Interval: 1, GasLimit: 50}, false)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, 1, failure.ExitCode)

	c := models.Candidate{Interval: 1, GasLimit: 250}
	require.NoError(t, eval.DeployAndRun(ctx, c, false))
	tps, err := eval.ReadThroughput(ctx, c)
	require.NoError(t, err)
	require.Equal(t, 250.0, tps)
}

func TestScriptEvaluatorRelativeBaseDir(t *testing.T) {
	requireShell(t)
	root := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg := testConfig(t)
	cfg.Scripts.BaseDir = "bin"
	cfg.Scripts.Shell = "sh"
	cfg.Scripts.Python = "sh"
	base := filepath.Join(root, "bin")
	writeScript(t, base, cfg.Scripts.DeploySUT, `pwd > deployed-from`)
	writeScript(t, base, cfg.Scripts.RunWorkload, `exit 0`)
	writeScript(t, base, cfg.Scripts.LastThroughput, `echo 321 > last-tps`)

	eval, err := NewScriptEvaluator(cfg, logger.VerbosityMilestones)
	require.NoError(t, err)
	ctx := context.Background()

	c := models.Candidate{Interval: 2, GasLimit: 400}
	require.NoError(t, eval.DeployAndRun(ctx, c, false))
	tps, err := eval.ReadThroughput(ctx, c)
	require.NoError(t, err)
	require.Equal(t, 321.0, tps)

	require.FileExists(t, filepath.Join(base, "deployed-from"))
	require.NoFileExists(t, filepath.Join(root, "last-tps"))
}

func TestNewScriptEvaluatorBadTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scripts.EvaluationTimeout = "soon"

	_, err := NewScriptEvaluator(cfg, logger.VerbosityResult)
	require.Error(t, err)
}

func TestReadThroughputFile(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    float64
		wantErr bool
	}{
		{name: "integer", content: ptr("120"), want: 120},
		{name: "float with whitespace", content: ptr("  87.25\n"), want: 87.25},
		{name: "zero", content: ptr("0"), want: 0},
		{name: "missing", content: nil, wantErr: true},
		{name: "empty", content: ptr("\n"), wantErr: true},
		{name: "garbage", content: ptr("tps=12"), wantErr: true},
		{name: "negative", content: ptr("-3"), wantErr: true},
		{name: "nan", content: ptr("NaN"), wantErr: true},
		{name: "inf", content: ptr("+Inf"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "last-tps")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
			}

			got, err := ReadThroughputFile(path)
			if tt.wantErr {
				var readErr *ReadError
				require.ErrorAs(t, err, &readErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func ptr(s string) *string { return &s }
