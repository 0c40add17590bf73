// Package evaluator runs candidates against the system under test through
// the external deploy, workload and analyzer scripts.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/optibench/pkg/config"
	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// quietFlag asks the deploy script to suppress its own output
const quietFlag = "--no-user-output-enabled"

// ScriptEvaluator deploys and benchmarks candidates with the configured scripts
type ScriptEvaluator struct {
	scripts config.ScriptsConfig
	nodes   int
	build   models.Candidate
	quiet   bool
	runner  Runner
}

// NewScriptEvaluator creates an evaluator from a validated configuration.
// Scripts run inside scripts.baseDir, the directory the analyzer writes the
// throughput file to. At VerbosityResult the deploy script is asked to stay
// quiet.
func NewScriptEvaluator(cfg *config.Config, verbosity int) (*ScriptEvaluator, error) {
	scripts, runner, err := newScriptRunner(cfg.Scripts)
	if err != nil {
		return nil, err
	}
	return &ScriptEvaluator{
		scripts: scripts,
		nodes:   cfg.SUT.NodeNumber,
		build:   models.Candidate{Interval: cfg.Tool.MaxInterval, GasLimit: cfg.Tool.DefaultGas},
		quiet:   verbosity == logger.VerbosityResult,
		runner:  runner,
	}, nil
}

// newScriptRunner resolves the script locations and returns a runner working
// in their base directory
func newScriptRunner(scripts config.ScriptsConfig) (config.ScriptsConfig, ProcessRunner, error) {
	timeout, err := scripts.GetEvaluationTimeout()
	if err != nil {
		return scripts, ProcessRunner{}, fmt.Errorf("invalid evaluation timeout: %w", err)
	}
	scripts, err = scripts.Absolute()
	if err != nil {
		return scripts, ProcessRunner{}, err
	}
	return scripts, ProcessRunner{Timeout: timeout, Dir: scripts.BaseDir}, nil
}

// WithRunner replaces the process runner
func (s *ScriptEvaluator) WithRunner(r Runner) *ScriptEvaluator {
	s.runner = r
	return s
}

// BuildInfrastructure provisions the SUT infrastructure once, deploying at
// maxInterval and defaultGas.
func (s *ScriptEvaluator) BuildInfrastructure(ctx context.Context) error {
	logger.Info("building SUT infrastructure", "nodes", s.nodes, "candidate", s.build.String())
	if err := s.deploy(ctx, s.build, true); err != nil {
		return fmt.Errorf("build SUT infrastructure: %w", err)
	}
	logger.Info("SUT infrastructure built")
	return nil
}

// DeployAndRun redeploys the SUT with c and runs the workload against it
func (s *ScriptEvaluator) DeployAndRun(ctx context.Context, c models.Candidate, rebuild bool) error {
	if err := s.deploy(ctx, c, rebuild); err != nil {
		return err
	}
	return s.runner.Run(ctx, s.scripts.Python, s.scripts.Path(s.scripts.RunWorkload),
		"--interval", strconv.Itoa(c.Interval),
		"--gaslimit", strconv.Itoa(c.GasLimit))
}

func (s *ScriptEvaluator) deploy(ctx context.Context, c models.Candidate, rebuild bool) error {
	build := "0"
	if rebuild {
		build = "1"
	}
	args := []string{
		s.scripts.Path(s.scripts.DeploySUT),
		strconv.Itoa(s.nodes),
		strconv.Itoa(c.Interval),
		strconv.Itoa(c.GasLimit),
		build,
	}
	if s.quiet {
		args = append(args, quietFlag)
	}
	return s.runner.Run(ctx, s.scripts.Shell, args...)
}

// ReadThroughput runs the analyzer for c and parses the throughput artifact it
// writes. A stale artifact from an earlier run is removed first so that a
// silent analyzer cannot report someone else's number.
func (s *ScriptEvaluator) ReadThroughput(ctx context.Context, c models.Candidate) (float64, error) {
	path := s.scripts.Path(s.scripts.ThroughputFile)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, &ReadError{Path: path, Err: err}
	}

	if err := s.runner.Run(ctx, s.scripts.Python, s.scripts.Path(s.scripts.LastThroughput),
		"--interval", strconv.Itoa(c.Interval),
		"--gaslimit", strconv.Itoa(c.GasLimit)); err != nil {
		return 0, err
	}

	tps, err := ReadThroughputFile(path)
	if err != nil {
		return 0, err
	}
	logger.Info("last execution throughput", "interval", c.Interval, "gas_limit", c.GasLimit, "tps", tps)
	return tps, nil
}

// ReadThroughputFile parses a throughput artifact: a single non-negative
// number, surrounding whitespace allowed.
func ReadThroughputFile(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, &ReadError{Path: path, Err: errors.New("empty file")}
	}
	tps, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	if math.IsNaN(tps) || math.IsInf(tps, 0) || tps < 0 {
		return 0, &ReadError{Path: path, Err: fmt.Errorf("invalid throughput %q", text)}
	}
	return tps, nil
}
