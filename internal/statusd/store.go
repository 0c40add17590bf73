// Package statusd exposes the progress of a tuning run over HTTP and gRPC
// and notifies a callback URL when the run ends.
package statusd

import (
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// recentLimit is the number of evaluations kept for /v1/evaluations
const recentLimit = 50

// Status is a point-in-time copy of the run progress
type Status struct {
	RunID       string
	State       models.RunStatus
	StartedAt   time.Time
	EndedAt     time.Time
	Phase       models.Phase
	Last        *models.Evaluation
	Evaluations int
	Failures    int
	Peaks       models.PeakHistory
	Best        *models.PeakRecord
	Outcome     *models.SearchOutcome
	Error       string
}

// ProgressStore tracks one run. The search goroutine writes through the
// observer methods; HTTP and gRPC handlers read snapshots.
type ProgressStore struct {
	mu     sync.RWMutex
	status Status
	recent []models.Evaluation

	onState func(models.RunStatus)
}

// NewProgressStore creates an empty store in the pending state
func NewProgressStore() *ProgressStore {
	return &ProgressStore{status: Status{State: models.RunStatusPending}}
}

// OnStateChange registers fn, called after every state transition
func (s *ProgressStore) OnStateChange(fn func(models.RunStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = fn
}

// Start marks runID as running
func (s *ProgressStore) Start(runID string) {
	s.mu.Lock()
	s.status.RunID = runID
	s.status.State = models.RunStatusRunning
	s.status.StartedAt = time.Now().UTC()
	fn := s.onState
	s.mu.Unlock()

	if fn != nil {
		fn(models.RunStatusRunning)
	}
}

// Finish ends the run with outcome or err
func (s *ProgressStore) Finish(outcome *models.SearchOutcome, err error) {
	s.mu.Lock()
	s.status.EndedAt = time.Now().UTC()
	if err != nil {
		s.status.State = models.RunStatusFailed
		s.status.Error = err.Error()
	} else {
		s.status.State = models.RunStatusCompleted
	}
	if outcome != nil {
		o := *outcome
		o.Peaks = outcome.Peaks.Clone()
		s.status.Outcome = &o
	}
	state := s.status.State
	fn := s.onState
	s.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}

func (s *ProgressStore) OnEvaluation(ev models.Evaluation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Evaluations++
	if !ev.Result.OK() {
		s.status.Failures++
	}
	s.status.Phase = ev.Phase
	s.status.Last = &ev

	s.recent = append(s.recent, ev)
	if len(s.recent) > recentLimit {
		s.recent = s.recent[len(s.recent)-recentLimit:]
	}
}

func (s *ProgressStore) OnPeak(peak models.PeakRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Peaks = append(s.status.Peaks, peak)
	if peak.Throughput >= 0 && (s.status.Best == nil || peak.Throughput > s.status.Best.Throughput) {
		best := peak
		s.status.Best = &best
	}
}

// Snapshot returns a copy of the current status
func (s *ProgressStore) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.status
	out.Peaks = s.status.Peaks.Clone()
	if s.status.Last != nil {
		last := *s.status.Last
		out.Last = &last
	}
	if s.status.Best != nil {
		best := *s.status.Best
		out.Best = &best
	}
	return out
}

// Recent returns up to limit of the latest evaluations, oldest first
func (s *ProgressStore) Recent(limit int) []models.Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]models.Evaluation, limit)
	copy(out, s.recent[len(s.recent)-limit:])
	return out
}
