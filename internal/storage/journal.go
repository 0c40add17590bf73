// Package storage keeps a SQLite journal of tuning runs: every evaluation,
// every interval peak and the final outcome.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// ErrRunNotFound is returned for an unknown run ID
var ErrRunNotFound = errors.New("run not found")

// Run is a journaled tuning run
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      models.RunStatus
	// Config is the effective configuration, as YAML.
	Config string
	// ReplayOf names the journaled run this one replays, if any.
	ReplayOf    string
	Best        *models.PeakRecord
	Evaluations int
	StopReason  string
	Error       string
}

// Journal stores runs in SQLite
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal=WAL&_sync=NORMAL&_foreign_keys=ON&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run journal migrations: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		status TEXT NOT NULL DEFAULT 'running',
		config TEXT NOT NULL,
		replay_of TEXT,
		best_interval INTEGER,
		best_gas_limit INTEGER,
		best_throughput REAL,
		evaluations INTEGER DEFAULT 0,
		stop_reason TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		phase TEXT NOT NULL,
		interval_s INTEGER NOT NULL,
		gas_limit INTEGER NOT NULL,
		measured INTEGER NOT NULL DEFAULT 0,
		throughput REAL,
		error_message TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		head_block INTEGER,
		observed_gas_limit INTEGER,
		block_time_ms INTEGER,
		evaluated_at DATETIME NOT NULL,
		UNIQUE (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_run ON evaluations(run_id, seq);

	CREATE TABLE IF NOT EXISTS peaks (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		interval_s INTEGER NOT NULL,
		gas_limit INTEGER NOT NULL,
		throughput REAL NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// CreateRun inserts a new run in the running state
func (j *Journal) CreateRun(ctx context.Context, run *Run) error {
	if run.Status == "" {
		run.Status = models.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, config, replay_of)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, string(run.Status), run.Config, nullString(run.ReplayOf))
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

// RecordEvaluation appends one evaluation to a run
func (j *Journal) RecordEvaluation(ctx context.Context, runID string, ev models.Evaluation) error {
	var throughput sql.NullFloat64
	if ev.Result.OK() && ev.Measured {
		throughput = sql.NullFloat64{Float64: ev.Result.Throughput, Valid: true}
	}
	var headBlock, observedGas, blockTime sql.NullInt64
	if obs := ev.Observation; obs != nil {
		headBlock = sql.NullInt64{Int64: int64(obs.HeadBlock), Valid: true}
		observedGas = sql.NullInt64{Int64: int64(obs.GasLimit), Valid: true}
		blockTime = sql.NullInt64{Int64: obs.BlockTime.Milliseconds(), Valid: true}
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO evaluations (run_id, seq, phase, interval_s, gas_limit, measured, throughput,
			error_message, duration_ms, head_block, observed_gas_limit, block_time_ms, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, ev.Seq, string(ev.Phase), ev.Candidate.Interval, ev.Candidate.GasLimit, ev.Measured, throughput,
		nullString(ev.ErrorString()), ev.Duration.Milliseconds(), headBlock, observedGas, blockTime, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record evaluation %d of run %s: %w", ev.Seq, runID, err)
	}
	return nil
}

// RecordPeak stores the peak of the position-th searched interval
func (j *Journal) RecordPeak(ctx context.Context, runID string, position int, peak models.PeakRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO peaks (run_id, position, interval_s, gas_limit, throughput)
		VALUES (?, ?, ?, ?, ?)
	`, runID, position, peak.Interval, peak.GasLimit, peak.Throughput)
	if err != nil {
		return fmt.Errorf("failed to record peak %d of run %s: %w", position, runID, err)
	}
	return nil
}

// FinishRun marks a run completed with outcome, or failed with runErr
func (j *Journal) FinishRun(ctx context.Context, runID string, outcome *models.SearchOutcome, runErr error) error {
	status := models.RunStatusCompleted
	var errMsg sql.NullString
	if runErr != nil {
		status = models.RunStatusFailed
		errMsg = nullString(runErr.Error())
	}
	var interval, gasLimit, evaluations sql.NullInt64
	var throughput sql.NullFloat64
	var stopReason sql.NullString
	if outcome != nil {
		interval = sql.NullInt64{Int64: int64(outcome.Interval), Valid: true}
		gasLimit = sql.NullInt64{Int64: int64(outcome.GasLimit), Valid: true}
		throughput = sql.NullFloat64{Float64: outcome.Throughput, Valid: true}
		evaluations = sql.NullInt64{Int64: int64(outcome.Evaluations), Valid: true}
		stopReason = nullString(outcome.StopReason)
	}

	res, err := j.db.ExecContext(ctx, `
		UPDATE runs SET
			completed_at = ?,
			status = ?,
			best_interval = ?,
			best_gas_limit = ?,
			best_throughput = ?,
			evaluations = COALESCE(?, (SELECT COUNT(*) FROM evaluations WHERE run_id = runs.id)),
			stop_reason = ?,
			error_message = ?
		WHERE id = ?
	`, time.Now().UTC(), string(status), interval, gasLimit, throughput, evaluations, stopReason, errMsg, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun loads a run
func (j *Journal) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, status, config, replay_of,
			best_interval, best_gas_limit, best_throughput, evaluations, stop_reason, error_message
		FROM runs WHERE id = ?
	`, runID)

	var (
		run                                Run
		status                             string
		completedAt                        sql.NullTime
		replayOf, stopReason, errMsg       sql.NullString
		bestInterval, bestGas, evaluations sql.NullInt64
		bestThroughput                     sql.NullFloat64
	)
	err := row.Scan(&run.ID, &run.StartedAt, &completedAt, &status, &run.Config, &replayOf,
		&bestInterval, &bestGas, &bestThroughput, &evaluations, &stopReason, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	run.Status = models.RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.ReplayOf = replayOf.String
	run.StopReason = stopReason.String
	run.Error = errMsg.String
	run.Evaluations = int(evaluations.Int64)
	if bestInterval.Valid {
		run.Best = &models.PeakRecord{
			Interval:   int(bestInterval.Int64),
			GasLimit:   int(bestGas.Int64),
			Throughput: bestThroughput.Float64,
		}
	}
	return &run, nil
}

// LatestRunID returns the most recently started run that is not itself a
// replay.
func (j *Journal) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := j.db.QueryRowContext(ctx, `
		SELECT id FROM runs WHERE replay_of IS NULL ORDER BY started_at DESC, rowid DESC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: journal is empty", ErrRunNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to find latest run: %w", err)
	}
	return id, nil
}

// ListEvaluations returns a run's evaluations in sequence order. Failures are
// restored with their recorded message.
func (j *Journal) ListEvaluations(ctx context.Context, runID string) ([]models.Evaluation, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, phase, interval_s, gas_limit, measured, throughput, error_message,
			duration_ms, head_block, observed_gas_limit, block_time_ms, evaluated_at
		FROM evaluations WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []models.Evaluation
	for rows.Next() {
		var (
			ev                                models.Evaluation
			phase                             string
			throughput                        sql.NullFloat64
			errMsg                            sql.NullString
			durationMs                        int64
			headBlock, observedGas, blockTime sql.NullInt64
		)
		if err := rows.Scan(&ev.Seq, &phase, &ev.Candidate.Interval, &ev.Candidate.GasLimit, &ev.Measured,
			&throughput, &errMsg, &durationMs, &headBlock, &observedGas, &blockTime, &ev.At); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		ev.Phase = models.Phase(phase)
		ev.Duration = time.Duration(durationMs) * time.Millisecond
		if errMsg.Valid {
			ev.Result = models.Failure(errors.New(errMsg.String))
		} else {
			ev.Result = models.Success(throughput.Float64)
		}
		if headBlock.Valid {
			ev.Observation = &models.Observation{
				HeadBlock: uint64(headBlock.Int64),
				GasLimit:  uint64(observedGas.Int64),
				BlockTime: time.Duration(blockTime.Int64) * time.Millisecond,
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListPeaks returns a run's interval peaks in search order
func (j *Journal) ListPeaks(ctx context.Context, runID string) (models.PeakHistory, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT interval_s, gas_limit, throughput FROM peaks WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query peaks of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out models.PeakHistory
	for rows.Next() {
		var p models.PeakRecord
		if err := rows.Scan(&p.Interval, &p.GasLimit, &p.Throughput); err != nil {
			return nil, fmt.Errorf("failed to scan peak: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
