package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Verbosity levels accepted by the optibench CLI.
const (
	// VerbosityResult prints only the final result.
	VerbosityResult = 0
	// VerbosityMilestones adds search milestones (phase changes, peaks, decisions).
	VerbosityMilestones = 1
	// VerbosityFull adds the output of every external process.
	VerbosityFull = 2
)

var (
	// Default is the default logger instance
	Default *slog.Logger
)

func init() {
	Default = NewText("warn", os.Stderr)
}

// ParseLevel maps a level name to a slog level. Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelForVerbosity returns the level name used for a CLI verbosity value.
func LevelForVerbosity(verbosity int) (string, error) {
	switch verbosity {
	case VerbosityResult:
		return "warn", nil
	case VerbosityMilestones:
		return "info", nil
	case VerbosityFull:
		return "debug", nil
	default:
		return "", fmt.Errorf("invalid verbosity %d: allowed levels are %d, %d or %d",
			verbosity, VerbosityResult, VerbosityMilestones, VerbosityFull)
	}
}

// New creates a new JSON logger with the specified level and output
func New(level string, output io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// NewText creates a new text-formatted logger, used by the CLI
func NewText(level string, output io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// SetDefault sets the default logger
func SetDefault(logger *slog.Logger) {
	Default = logger
	slog.SetDefault(logger)
}

// Enabled reports whether the default logger emits records at level.
func Enabled(level slog.Level) bool {
	return Default.Enabled(context.Background(), level)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Default.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Default.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Default.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Default.Error(msg, args...)
}

// With returns a logger with additional attributes
func With(args ...any) *slog.Logger {
	return Default.With(args...)
}
