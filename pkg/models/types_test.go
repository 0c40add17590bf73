package models

import (
	"errors"
	"testing"
)

func TestEvaluationResult(t *testing.T) {
	ok := Success(120.5)
	if !ok.OK() {
		t.Fatalf("expected success result to be OK")
	}
	if ok.Throughput != 120.5 {
		t.Errorf("expected throughput 120.5, got %f", ok.Throughput)
	}

	failed := Failure(errors.New("deploy failed"))
	if failed.OK() {
		t.Fatalf("expected failure result not to be OK")
	}

	// A failure built without a cause must still read as failed.
	if Failure(nil).OK() {
		t.Fatalf("expected Failure(nil) not to be OK")
	}
}

func TestEvaluationErrorString(t *testing.T) {
	e := Evaluation{Result: Success(1)}
	if e.ErrorString() != "" {
		t.Errorf("expected empty error string, got %q", e.ErrorString())
	}
	e.Result = Failure(errors.New("boom"))
	if e.ErrorString() != "boom" {
		t.Errorf("expected 'boom', got %q", e.ErrorString())
	}
}

func TestPeakHistory(t *testing.T) {
	h := PeakHistory{
		{Interval: 1, GasLimit: 100, Throughput: 10},
		{Interval: 2, GasLimit: 200, Throughput: 20},
	}

	clone := h.Clone()
	clone[0].Throughput = 99
	if h[0].Throughput != 10 {
		t.Errorf("expected clone to be independent of the original history")
	}
}

func TestCandidateString(t *testing.T) {
	c := Candidate{Interval: 3, GasLimit: 8000000}
	if c.String() != "3s/8000000" {
		t.Errorf("unexpected candidate string %q", c.String())
	}
	o := SearchOutcome{Interval: 3, GasLimit: 8000000}
	if o.Candidate() != c {
		t.Errorf("expected outcome candidate %v, got %v", c, o.Candidate())
	}
}
