package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the optibench configuration document. Keys inside sut_config and
// tool_config keep the names used by existing Optibench config.json files.
type Config struct {
	SUT     SUTConfig     `yaml:"sut_config" toml:"sut_config"`
	Tool    ToolConfig    `yaml:"tool_config" toml:"tool_config"`
	Scripts ScriptsConfig `yaml:"scripts,omitempty" toml:"scripts"`
	Journal JournalConfig `yaml:"journal,omitempty" toml:"journal"`
	Status  StatusConfig  `yaml:"status,omitempty" toml:"status"`
	SUTRPC  *SUTRPCConfig `yaml:"sut_rpc,omitempty" toml:"sut_rpc"`
}

// SUTConfig describes the system under test
type SUTConfig struct {
	NodeNumber int `yaml:"nodeNumber" toml:"nodeNumber"`
}

// ToolConfig holds the search parameters
type ToolConfig struct {
	MaxInterval      int      `yaml:"maxInterval" toml:"maxInterval"`
	IntervalStep     int      `yaml:"intervalStep" toml:"intervalStep"`
	DefaultGas       int      `yaml:"defaultGas" toml:"defaultGas"`
	MinGas           int      `yaml:"minGas" toml:"minGas"`
	GasStep          int      `yaml:"gasStep" toml:"gasStep"`
	GasLimitAccuracy int      `yaml:"gasLimitAccuracy" toml:"gasLimitAccuracy"`
	NumberTrials     int      `yaml:"numberTrials" toml:"numberTrials"`
	Sensitivity      *float64 `yaml:"sensitivity" toml:"sensitivity"`

	// MaxBoundAttempts caps the gas limit growth phase and the per-interval
	// minimum gas estimate. Zero keeps them unbounded.
	MaxBoundAttempts int `yaml:"maxBoundAttempts,omitempty" toml:"maxBoundAttempts"`
	// MaxSearchInterval stops the outer search before exceeding this interval.
	// Zero keeps it unbounded.
	MaxSearchInterval int `yaml:"maxSearchInterval,omitempty" toml:"maxSearchInterval"`
}

// GetSensitivity returns the configured sensitivity, zero if unset
func (t ToolConfig) GetSensitivity() float64 {
	if t.Sensitivity == nil {
		return 0
	}
	return *t.Sensitivity
}

// ScriptsConfig locates the external collaborators
type ScriptsConfig struct {
	BaseDir           string `yaml:"baseDir,omitempty" toml:"baseDir"`
	Shell             string `yaml:"shell,omitempty" toml:"shell"`
	Python            string `yaml:"python,omitempty" toml:"python"`
	DeploySUT         string `yaml:"deploySut,omitempty" toml:"deploySut"`
	RunWorkload       string `yaml:"runWorkload,omitempty" toml:"runWorkload"`
	LastThroughput    string `yaml:"lastThroughput,omitempty" toml:"lastThroughput"`
	AggregateReports  string `yaml:"aggregateReports,omitempty" toml:"aggregateReports"`
	BackupResults     string `yaml:"backupResults,omitempty" toml:"backupResults"`
	ThroughputFile    string `yaml:"throughputFile,omitempty" toml:"throughputFile"`
	EvaluationTimeout string `yaml:"evaluationTimeout,omitempty" toml:"evaluationTimeout"`
}

// Path resolves a script path against BaseDir
func (s ScriptsConfig) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || s.BaseDir == "" {
		return p
	}
	return filepath.Join(s.BaseDir, p)
}

// Absolute returns a copy with BaseDir made absolute, so that script paths
// stay valid for processes started inside BaseDir.
func (s ScriptsConfig) Absolute() (ScriptsConfig, error) {
	if s.BaseDir == "" || filepath.IsAbs(s.BaseDir) {
		return s, nil
	}
	dir, err := filepath.Abs(s.BaseDir)
	if err != nil {
		return s, fmt.Errorf("failed to resolve scripts.baseDir %q: %w", s.BaseDir, err)
	}
	s.BaseDir = dir
	return s, nil
}

// GetEvaluationTimeout parses the per-process timeout. Empty means no timeout.
func (s ScriptsConfig) GetEvaluationTimeout() (time.Duration, error) {
	if s.EvaluationTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(s.EvaluationTimeout)
}

// JournalConfig configures the SQLite evaluation journal
type JournalConfig struct {
	Path string `yaml:"path,omitempty" toml:"path"`
}

// StatusConfig configures the status servers and completion webhook
type StatusConfig struct {
	HTTPAddr       string `yaml:"httpAddr,omitempty" toml:"httpAddr"`
	GRPCAddr       string `yaml:"grpcAddr,omitempty" toml:"grpcAddr"`
	CallbackURL    string `yaml:"callbackUrl,omitempty" toml:"callbackUrl"`
	CallbackSecret string `yaml:"callbackSecret,omitempty" toml:"callbackSecret"`
}

// SUTRPCConfig enables probing the SUT's JSON-RPC endpoint after deployments
type SUTRPCConfig struct {
	URL          string `yaml:"url" toml:"url"`
	ReadyTimeout string `yaml:"readyTimeout,omitempty" toml:"readyTimeout"`
}

// GetReadyTimeout parses the readiness timeout
func (r SUTRPCConfig) GetReadyTimeout() (time.Duration, error) {
	if r.ReadyTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(r.ReadyTimeout)
}
