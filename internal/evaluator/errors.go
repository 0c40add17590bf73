package evaluator

import (
	"fmt"
	"strings"
)

// Failure is a failed external process: it exited non-zero, could not be
// started or ran past its timeout. The search treats it as an infeasible
// candidate.
type Failure struct {
	Command  string
	ExitCode int
	TimedOut bool
	// Output holds the last lines the process wrote, for diagnostics.
	Output []string
	Err    error
}

func (f *Failure) Error() string {
	var b strings.Builder
	switch {
	case f.TimedOut:
		fmt.Fprintf(&b, "%s: timed out", f.Command)
	case f.ExitCode > 0:
		fmt.Fprintf(&b, "%s: exit status %d", f.Command, f.ExitCode)
	default:
		fmt.Fprintf(&b, "%s: %v", f.Command, f.Err)
	}
	if len(f.Output) > 0 {
		fmt.Fprintf(&b, " (last output: %q)", f.Output[len(f.Output)-1])
	}
	return b.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ReadError reports a throughput artifact that is missing, unparseable or
// negative after a successful run.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read throughput from %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
