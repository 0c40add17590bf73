package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Default script locations, relative to ScriptsConfig.BaseDir.
const (
	DefaultShell            = "bash"
	DefaultPython           = "python"
	DefaultDeploySUT        = "sut/deploy-sut.sh"
	DefaultRunWorkload      = "workload/run-caliper.py"
	DefaultLastThroughput   = "analyzer/get-last-throughput.py"
	DefaultAggregateReports = "analyzer/aggregate-html-reports.py"
	DefaultBackupResults    = "analyzer/backup-old-results.py"
	DefaultThroughputFile   = "last-tps"
	DefaultRPCReadyTimeout  = "60s"
)

// LoadConfig loads and parses a configuration file. The format follows the
// file extension; anything other than .toml is read as YAML/JSON.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}
	cfg, err := ParseConfig(data, formatFromPath(path))
	if err != nil {
		var cfgErr *Error
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
			return nil, cfgErr
		}
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

func formatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// ApplyDefaults fills optional fields left empty in the document
func ApplyDefaults(cfg *Config) {
	s := &cfg.Scripts
	setDefault(&s.Shell, DefaultShell)
	setDefault(&s.Python, DefaultPython)
	setDefault(&s.DeploySUT, DefaultDeploySUT)
	setDefault(&s.RunWorkload, DefaultRunWorkload)
	setDefault(&s.LastThroughput, DefaultLastThroughput)
	setDefault(&s.AggregateReports, DefaultAggregateReports)
	setDefault(&s.BackupResults, DefaultBackupResults)
	setDefault(&s.ThroughputFile, DefaultThroughputFile)

	if cfg.SUTRPC != nil {
		setDefault(&cfg.SUTRPC.ReadyTimeout, DefaultRPCReadyTimeout)
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// validateConfig reports every problem found, not only the first one
func validateConfig(cfg *Config) error {
	var result *multierror.Error

	if cfg.SUT.NodeNumber < 1 {
		result = multierror.Append(result, fmt.Errorf("sut_config.nodeNumber must be positive, got %d", cfg.SUT.NodeNumber))
	}

	if err := validateTool(&cfg.Tool); err != nil {
		result = multierror.Append(result, err)
	}

	if _, err := cfg.Scripts.GetEvaluationTimeout(); err != nil {
		result = multierror.Append(result, fmt.Errorf("scripts.evaluationTimeout: %w", err))
	} else if strings.HasPrefix(strings.TrimSpace(cfg.Scripts.EvaluationTimeout), "-") {
		result = multierror.Append(result, fmt.Errorf("scripts.evaluationTimeout cannot be negative"))
	}

	if cfg.SUTRPC != nil {
		if cfg.SUTRPC.URL == "" {
			result = multierror.Append(result, fmt.Errorf("sut_rpc.url is required when sut_rpc is set"))
		}
		if _, err := cfg.SUTRPC.GetReadyTimeout(); err != nil {
			result = multierror.Append(result, fmt.Errorf("sut_rpc.readyTimeout: %w", err))
		}
	}

	if cfg.Status.CallbackSecret != "" && cfg.Status.CallbackURL == "" {
		result = multierror.Append(result, fmt.Errorf("status.callbackSecret requires status.callbackUrl"))
	}

	return result.ErrorOrNil()
}

// validateTool validates the search parameters
func validateTool(t *ToolConfig) error {
	var result *multierror.Error

	positive := []struct {
		name  string
		value int
	}{
		{"maxInterval", t.MaxInterval},
		{"intervalStep", t.IntervalStep},
		{"defaultGas", t.DefaultGas},
		{"minGas", t.MinGas},
		{"gasStep", t.GasStep},
		{"gasLimitAccuracy", t.GasLimitAccuracy},
		{"numberTrials", t.NumberTrials},
	}
	for _, field := range positive {
		if field.value < 1 {
			result = multierror.Append(result, fmt.Errorf("tool_config.%s must be positive, got %d", field.name, field.value))
		}
	}

	if t.Sensitivity == nil {
		result = multierror.Append(result, fmt.Errorf("tool_config.sensitivity is required"))
	} else if *t.Sensitivity < 0 || *t.Sensitivity >= 1 {
		result = multierror.Append(result, fmt.Errorf("tool_config.sensitivity must be in [0, 1), got %g", *t.Sensitivity))
	}

	if t.MaxBoundAttempts < 0 {
		result = multierror.Append(result, fmt.Errorf("tool_config.maxBoundAttempts cannot be negative"))
	}
	if t.MaxSearchInterval < 0 {
		result = multierror.Append(result, fmt.Errorf("tool_config.maxSearchInterval cannot be negative"))
	}

	return result.ErrorOrNil()
}
