package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/GoSim-25-26J-441/optibench/internal/evaluator"
	"github.com/GoSim-25-26J-441/optibench/internal/metrics"
	"github.com/GoSim-25-26J-441/optibench/internal/report"
	"github.com/GoSim-25-26J-441/optibench/internal/search"
	"github.com/GoSim-25-26J-441/optibench/internal/statusd"
	"github.com/GoSim-25-26J-441/optibench/internal/storage"
	"github.com/GoSim-25-26J-441/optibench/internal/sutprobe"
	"github.com/GoSim-25-26J-441/optibench/pkg/config"
	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
	"github.com/GoSim-25-26J-441/optibench/pkg/utils"
)

const (
	// latestRun selects the most recent journaled benchmark run for --replay
	latestRun = "latest"
	// notifyTimeout bounds the completion webhook delivery, retries included
	notifyTimeout = time.Minute
)

// session holds what a tuning run owns and must release on exit
type session struct {
	cfg       *config.Config
	verbosity int
	runID     string
	replayOf  string

	registry *prometheus.Registry
	metrics  *metrics.SearchMetrics
	store    *statusd.ProgressStore
	notifier *statusd.Notifier
	servers  *statusServers
	journal  *storage.Journal
	probe    *sutprobe.Client

	replay        *evaluator.ReplayEvaluator
	recordedPeaks models.PeakHistory

	stopNotify func()
}

func runTuning(c *cli.Context, stderr io.Writer) error {
	verbosity := c.Int(verboseFlag.Name)
	level, err := logger.LevelForVerbosity(verbosity)
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	logger.SetDefault(logger.NewText(level, stderr))

	cfg, err := config.LoadConfig(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	if addr := c.String(statusHTTPFlag.Name); addr != "" {
		cfg.Status.HTTPAddr = addr
	}
	if addr := c.String(statusGRPCFlag.Name); addr != "" {
		cfg.Status.GRPCAddr = addr
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(sigCtx)
	defer cancel(nil)

	s := &session{
		cfg:       cfg,
		verbosity: verbosity,
		runID:     utils.GenerateRunID(),
		replayOf:  c.String(replayFlag.Name),
		registry:  prometheus.NewRegistry(),
		store:     statusd.NewProgressStore(),
		notifier:  statusd.NewNotifier(),
	}
	s.metrics = metrics.NewSearchMetrics(s.registry)
	s.metrics.SetRunStatus(models.RunStatusPending)

	runErr := s.run(ctx, cancel, c.App.Writer, c.Bool(skipBuildFlag.Name))
	if closeErr := s.close(); closeErr != nil {
		logger.Warn("shutdown incomplete", "error", closeErr)
	}
	return runErr
}

func (s *session) run(ctx context.Context, cancel context.CancelCauseFunc, out io.Writer, skipBuild bool) error {
	var err error
	s.servers, err = startStatusServers(s.cfg.Status, s.store, s.registry)
	if err != nil {
		return err
	}

	if s.cfg.Journal.Path != "" {
		s.journal, err = storage.Open(s.cfg.Journal.Path)
		if err != nil {
			return err
		}
	}

	var (
		params  = search.ParamsFromConfig(s.cfg.Tool)
		eval    search.Evaluator
		reports *evaluator.ReportRunner
	)
	if s.replayOf != "" {
		eval, params, err = s.loadReplay(ctx, cancel)
	} else {
		eval, reports, err = s.prepareBenchmark(ctx, skipBuild)
	}
	if err != nil {
		return err
	}

	observers := search.Observers{s.metrics, s.store}
	var recorder *storage.Recorder
	if s.journal != nil {
		snapshot, err := config.MarshalConfigYAML(s.cfg)
		if err != nil {
			return fmt.Errorf("failed to snapshot configuration: %w", err)
		}
		run := &storage.Run{
			ID:       s.runID,
			Config:   snapshot,
			ReplayOf: s.replayOf,
		}
		if err := s.journal.CreateRun(ctx, run); err != nil {
			return err
		}
		recorder = s.journal.Recorder(ctx, s.runID)
		observers = append(search.Observers{recorder}, observers...)
	}

	logger.Info("starting search", "run_id", s.runID, "replay_of", s.replayOf)
	s.store.Start(s.runID)
	s.metrics.SetRunStatus(models.RunStatusRunning)

	start := time.Now()
	outcome, searchErr := search.NewEngine(params, eval).WithObserver(observers).Run(ctx)
	elapsed := time.Since(start)
	if searchErr == nil && s.replay != nil {
		searchErr = s.replay.Verify(outcome, s.recordedPeaks)
	}

	s.finish(outcome, searchErr, recorder)
	if searchErr != nil {
		return fmt.Errorf("search failed: %w", searchErr)
	}

	dashboard := ""
	if reports != nil {
		if err := reports.AggregateReports(ctx, outcome, elapsed); err != nil {
			logger.Warn("failed to aggregate reports", "error", err)
		} else {
			dashboard = s.cfg.Scripts.Path(report.DashboardPath)
		}
	}

	report.WritePeaks(out, outcome)
	report.WriteSummary(out, outcome, elapsed, dashboard)
	return nil
}

// prepareBenchmark backs up previous results, builds the SUT and returns the
// evaluator that deploys candidates with the configured scripts.
func (s *session) prepareBenchmark(ctx context.Context, skipBuild bool) (search.Evaluator, *evaluator.ReportRunner, error) {
	scripts, err := evaluator.NewScriptEvaluator(s.cfg, s.verbosity)
	if err != nil {
		return nil, nil, &config.Error{Err: err}
	}
	reports, err := evaluator.NewReportRunner(s.cfg)
	if err != nil {
		return nil, nil, &config.Error{Err: err}
	}

	if err := reports.Backup(ctx); err != nil {
		return nil, nil, err
	}
	if skipBuild {
		logger.Info("skipping SUT infrastructure build")
	} else if err := scripts.BuildInfrastructure(ctx); err != nil {
		return nil, nil, err
	}

	if s.cfg.SUTRPC == nil || s.cfg.SUTRPC.URL == "" {
		return scripts, reports, nil
	}
	timeout, err := s.cfg.SUTRPC.GetReadyTimeout()
	if err != nil {
		return nil, nil, &config.Error{Err: fmt.Errorf("invalid sut_rpc.readyTimeout: %w", err)}
	}
	s.probe, err = sutprobe.Dial(ctx, s.cfg.SUTRPC.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := s.probe.WaitReady(ctx, timeout); err != nil {
		return nil, nil, err
	}
	return evaluator.NewProbingEvaluator(scripts, s.probe), reports, nil
}

// loadReplay resolves the run to replay and returns an evaluator answering
// from its journal, with the search parameters that run used.
func (s *session) loadReplay(ctx context.Context, cancel context.CancelCauseFunc) (search.Evaluator, search.Params, error) {
	if s.journal == nil {
		return nil, search.Params{}, &usageError{msg: "--replay requires journal.path to be configured"}
	}
	if s.replayOf == latestRun {
		id, err := s.journal.LatestRunID(ctx)
		if err != nil {
			return nil, search.Params{}, err
		}
		s.replayOf = id
	}

	run, err := s.journal.GetRun(ctx, s.replayOf)
	if err != nil {
		return nil, search.Params{}, err
	}
	recorded, err := config.ParseConfigYAMLString(run.Config)
	if err != nil {
		return nil, search.Params{}, fmt.Errorf("run %s has an unusable configuration: %w", run.ID, err)
	}
	records, err := s.journal.ListEvaluations(ctx, run.ID)
	if err != nil {
		return nil, search.Params{}, err
	}
	s.recordedPeaks, err = s.journal.ListPeaks(ctx, run.ID)
	if err != nil {
		return nil, search.Params{}, err
	}
	logger.Info("replaying run", "run_id", run.ID, "evaluations", len(records), "peaks", len(s.recordedPeaks))
	s.cfg.Tool = recorded.Tool
	s.replay = evaluator.NewReplayEvaluator(records, cancel)
	return s.replay, search.ParamsFromConfig(recorded.Tool), nil
}

// finish publishes the run result to the journal, status store, metrics and
// the completion webhook.
func (s *session) finish(outcome models.SearchOutcome, searchErr error, recorder *storage.Recorder) {
	var result *models.SearchOutcome
	status := models.RunStatusFailed
	if searchErr == nil {
		result = &outcome
		status = models.RunStatusCompleted
	}

	if s.journal != nil {
		if err := recorder.Err(); err != nil {
			logger.Warn("journal is incomplete", "run_id", s.runID, "error", err)
		}
		if err := s.journal.FinishRun(context.Background(), s.runID, result, searchErr); err != nil {
			logger.Warn("failed to finish journaled run", "run_id", s.runID, "error", err)
		}
	}
	s.store.Finish(result, searchErr)
	s.metrics.SetRunStatus(status)
	if s.cfg.Status.CallbackURL != "" {
		// Delivery outlives the run's cancellation; another interrupt abandons it.
		sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		notifyCtx, cancel := context.WithTimeout(sigCtx, notifyTimeout)
		s.stopNotify = func() {
			cancel()
			stop()
		}
		s.notifier.Notify(notifyCtx, s.cfg.Status.CallbackURL, s.cfg.Status.CallbackSecret, s.store.Snapshot())
	}
}

// close releases every resource, reporting all failures together
func (s *session) close() error {
	var result *multierror.Error
	if s.servers != nil {
		if err := s.servers.Shutdown(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.notifier.Wait()
	if s.stopNotify != nil {
		s.stopNotify()
	}
	if s.probe != nil {
		s.probe.Close()
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close journal: %w", err))
		}
	}
	return result.ErrorOrNil()
}
