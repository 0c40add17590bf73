package search

import (
	"errors"
	"fmt"
)

// ErrSearchExhausted is the root of every fatal search outcome: the candidate
// or bound space was used up without finding a working configuration.
var ErrSearchExhausted = errors.New("search exhausted")

var (
	// ErrNoFeasibleInterval means no block interval up to maxInterval worked
	// with the default gas limit.
	ErrNoFeasibleInterval = fmt.Errorf("%w: no feasible block interval", ErrSearchExhausted)
	// ErrGasBoundNotFound means no working gas limit was found for an interval.
	ErrGasBoundNotFound = fmt.Errorf("%w: no working gas limit", ErrSearchExhausted)
	// ErrNoSuccessfulRun means the peak history holds no successful measurement.
	ErrNoSuccessfulRun = fmt.Errorf("%w: no successful throughput measurement", ErrSearchExhausted)
)
