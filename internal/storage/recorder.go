package storage

import (
	"context"
	"sync"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// Recorder journals search events for one run. Write errors do not stop the
// search: they are logged and the first one is kept for Err.
type Recorder struct {
	journal *Journal
	runID   string
	ctx     context.Context

	mu    sync.Mutex
	peaks int
	err   error
}

// Recorder returns an observer writing to runID. Writes outlive ctx's
// cancellation so that the evaluation in flight at shutdown is kept.
func (j *Journal) Recorder(ctx context.Context, runID string) *Recorder {
	return &Recorder{journal: j, runID: runID, ctx: context.WithoutCancel(ctx)}
}

func (r *Recorder) OnEvaluation(ev models.Evaluation) {
	r.check(r.journal.RecordEvaluation(r.ctx, r.runID, ev))
}

func (r *Recorder) OnPeak(peak models.PeakRecord) {
	r.mu.Lock()
	position := r.peaks
	r.peaks++
	r.mu.Unlock()
	r.check(r.journal.RecordPeak(r.ctx, r.runID, position, peak))
}

// Err returns the first write error
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) check(err error) {
	if err == nil {
		return
	}
	logger.Warn("journal write failed", "run_id", r.runID, "error", err)
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}
