package evaluator

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// ErrReplayDiverged means the search asked for a candidate the journaled run
// did not evaluate at that point.
var ErrReplayDiverged = errors.New("replay diverged from journal")

// ReplayEvaluator answers evaluations from a journaled run, in order. A
// divergence cancels the search through abort.
type ReplayEvaluator struct {
	records []models.Evaluation
	next    int
	current *models.Evaluation
	abort   context.CancelCauseFunc
	err     error
}

// NewReplayEvaluator replays records. abort may be nil.
func NewReplayEvaluator(records []models.Evaluation, abort context.CancelCauseFunc) *ReplayEvaluator {
	return &ReplayEvaluator{records: records, abort: abort}
}

func (r *ReplayEvaluator) DeployAndRun(_ context.Context, c models.Candidate, _ bool) error {
	r.current = nil
	if r.err != nil {
		return r.err
	}
	if r.next >= len(r.records) {
		return r.diverge(fmt.Errorf("%w: no evaluation recorded after #%d, search asked for %s",
			ErrReplayDiverged, len(r.records), c))
	}

	rec := &r.records[r.next]
	r.next++
	if rec.Candidate != c {
		return r.diverge(fmt.Errorf("%w: evaluation #%d recorded %s, search asked for %s",
			ErrReplayDiverged, rec.Seq, rec.Candidate, c))
	}
	r.current = rec

	// A recorded read failure replays as a failed run; the search cannot
	// tell the two apart.
	if !rec.Result.OK() {
		return rec.Result.Err
	}
	return nil
}

func (r *ReplayEvaluator) ReadThroughput(_ context.Context, c models.Candidate) (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	rec := r.current
	if rec == nil || rec.Candidate != c {
		return 0, r.diverge(fmt.Errorf("%w: throughput read for %s without a matching run", ErrReplayDiverged, c))
	}
	if !rec.Measured {
		return 0, r.diverge(fmt.Errorf("%w: evaluation #%d of %s was not measured", ErrReplayDiverged, rec.Seq, c))
	}
	return rec.Result.Throughput, nil
}

// TakeObservation returns the probe observation recorded with the current
// evaluation, if any.
func (r *ReplayEvaluator) TakeObservation() *models.Observation {
	if r.current == nil {
		return nil
	}
	return r.current.Observation
}

// Remaining is the number of recorded evaluations not replayed yet
func (r *ReplayEvaluator) Remaining() int {
	return len(r.records) - r.next
}

// Err returns the divergence that stopped the replay, if any
func (r *ReplayEvaluator) Err() error {
	return r.err
}

// Verify checks a finished replay against the journaled run: every recorded
// evaluation was consumed and the same interval peaks were found.
func (r *ReplayEvaluator) Verify(outcome models.SearchOutcome, recorded models.PeakHistory) error {
	if r.err != nil {
		return r.err
	}
	if n := r.Remaining(); n > 0 {
		return fmt.Errorf("%w: %d recorded evaluations were not replayed", ErrReplayDiverged, n)
	}
	if !slices.Equal(outcome.Peaks, recorded) {
		return fmt.Errorf("%w: replayed peaks %v differ from recorded %v", ErrReplayDiverged, outcome.Peaks, recorded)
	}
	return nil
}

func (r *ReplayEvaluator) diverge(err error) error {
	r.err = err
	if r.abort != nil {
		r.abort(err)
	}
	return err
}
