package evaluator

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
)

// outputTail is the number of trailing output lines kept for a Failure.
const outputTail = 5

// waitDelay bounds how long Wait keeps reading output from processes left
// behind by a killed command.
const waitDelay = 5 * time.Second

// Runner runs one external process to completion
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ProcessRunner runs external processes synchronously. Output is logged line
// by line at debug level while the process runs.
type ProcessRunner struct {
	// Timeout bounds a single process. Zero means no timeout.
	Timeout time.Duration
	// Dir is the working directory; empty uses the current one.
	Dir string
}

// Run starts name with args and waits for it. Any failure is a *Failure.
func (p ProcessRunner) Run(ctx context.Context, name string, args ...string) error {
	runCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	command := strings.TrimSpace(name + " " + strings.Join(args, " "))
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = p.Dir
	cmd.WaitDelay = waitDelay

	stdout := newLineLogger(command, "stdout")
	stderr := newLineLogger(command, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Debug("running process", "command", command)
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return &Failure{Command: command, ExitCode: -1, Err: err}
	}
	err := cmd.Wait()
	stdout.flush()
	stderr.flush()

	logger.Debug("process finished", "command", command, "duration", time.Since(start), "error", err)
	if err == nil {
		return nil
	}

	failure := &Failure{Command: command, ExitCode: -1, Err: err, Output: stderr.tail()}
	if len(failure.Output) == 0 {
		failure.Output = stdout.tail()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		failure.ExitCode = exitErr.ExitCode()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		failure.TimedOut = true
		failure.Err = runCtx.Err()
	} else if ctx.Err() != nil {
		failure.Err = ctx.Err()
	}
	return failure
}

// lineLogger is an io.Writer that logs every complete line and remembers the
// last few. exec drains stdout and stderr on separate goroutines, one writer
// each.
type lineLogger struct {
	mu      sync.Mutex
	command string
	stream  string
	partial []byte
	last    []string
}

func newLineLogger(command, stream string) *lineLogger {
	return &lineLogger{command: command, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.partial = append(l.partial, p...)
	for {
		i := bytes.IndexByte(l.partial, '\n')
		if i < 0 {
			break
		}
		l.emit(string(bytes.TrimRight(l.partial[:i], "\r")))
		l.partial = l.partial[i+1:]
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.partial) > 0 {
		l.emit(string(l.partial))
		l.partial = nil
	}
}

func (l *lineLogger) emit(line string) {
	if line == "" {
		return
	}
	logger.Debug(line, "command", l.command, "stream", l.stream)
	l.last = append(l.last, line)
	if len(l.last) > outputTail {
		l.last = l.last[len(l.last)-outputTail:]
	}
}

func (l *lineLogger) tail() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.last...)
}
