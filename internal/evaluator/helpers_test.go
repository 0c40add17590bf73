package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/optibench/pkg/config"
)

// recordingRunner records every command line and answers from hook.
type recordingRunner struct {
	calls []string
	hook  func(name string, args []string) error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) error {
	r.calls = append(r.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	if r.hook != nil {
		return r.hook(name, args)
	}
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	sens := 0.05
	cfg := &config.Config{
		SUT: config.SUTConfig{NodeNumber: 4},
		Tool: config.ToolConfig{
			MaxInterval:      10,
			IntervalStep:     1,
			DefaultGas:       8000000,
			MinGas:           1000000,
			GasStep:          2000000,
			GasLimitAccuracy: 250000,
			NumberTrials:     3,
			Sensitivity:      &sens,
		},
		Scripts: config.ScriptsConfig{BaseDir: t.TempDir()},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

// writeScript creates an executable shell script under dir
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}
