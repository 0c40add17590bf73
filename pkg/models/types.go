package models

import (
	"fmt"
	"time"
)

// RunStatus represents the status of a tuning run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Phase identifies which search step requested an evaluation
type Phase string

const (
	PhaseMinInterval  Phase = "min_interval"
	PhaseGasGrowth    Phase = "gas_growth"
	PhaseGasBisection Phase = "gas_bisection"
	PhaseGasEstimate  Phase = "gas_estimate"
	PhaseGasScan      Phase = "gas_scan"
)

// Candidate is one point of the two-dimensional search space
type Candidate struct {
	Interval int `json:"interval"`
	GasLimit int `json:"gas_limit"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%ds/%d", c.Interval, c.GasLimit)
}

// EvaluationResult is the outcome of one black-box run: either a throughput
// value or a failure, never both.
type EvaluationResult struct {
	Throughput float64
	Err        error
}

// Success builds a successful result carrying throughput.
func Success(throughput float64) EvaluationResult {
	return EvaluationResult{Throughput: throughput}
}

// Failure builds a failed result. A nil err is replaced so that the result
// still reads as failed.
func Failure(err error) EvaluationResult {
	if err == nil {
		err = fmt.Errorf("evaluation failed")
	}
	return EvaluationResult{Err: err}
}

// OK reports whether the evaluation succeeded.
func (r EvaluationResult) OK() bool {
	return r.Err == nil
}

// Observation is what the SUT reported about itself right after a deployment.
type Observation struct {
	HeadBlock uint64        `json:"head_block"`
	GasLimit  uint64        `json:"gas_limit"`
	BlockTime time.Duration `json:"block_time"`
}

// Evaluation is a journaled black-box run.
type Evaluation struct {
	Seq         int              `json:"seq"`
	Phase       Phase            `json:"phase"`
	Candidate   Candidate        `json:"candidate"`
	Measured    bool             `json:"measured"`
	Result      EvaluationResult `json:"-"`
	Duration    time.Duration    `json:"duration"`
	Observation *Observation     `json:"observation,omitempty"`
	At          time.Time        `json:"at"`
}

// ErrorString returns the failure message, or "" for a successful run.
func (e Evaluation) ErrorString() string {
	if e.Result.Err == nil {
		return ""
	}
	return e.Result.Err.Error()
}

// PeakRecord is the best throughput observed for one interval.
type PeakRecord struct {
	Interval   int     `json:"interval"`
	GasLimit   int     `json:"gas_limit"`
	Throughput float64 `json:"throughput"`
}

// PeakHistory holds one PeakRecord per completed interval, in evaluation order.
type PeakHistory []PeakRecord

// Clone returns an independent copy of the history.
func (h PeakHistory) Clone() PeakHistory {
	out := make(PeakHistory, len(h))
	copy(out, h)
	return out
}

// SearchOutcome is the final selected configuration.
type SearchOutcome struct {
	Interval    int           `json:"interval"`
	GasLimit    int           `json:"gas_limit"`
	Throughput  float64       `json:"throughput"`
	Peaks       PeakHistory   `json:"peaks,omitempty"`
	Evaluations int           `json:"evaluations"`
	StopReason  string        `json:"stop_reason,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Candidate returns the selected point of the search space.
func (o SearchOutcome) Candidate() Candidate {
	return Candidate{Interval: o.Interval, GasLimit: o.GasLimit}
}
