package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a configuration document
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ParseConfig parses a Config from bytes, applies defaults and validates it.
// JSON documents are decoded by the YAML decoder, of which JSON is a subset.
func ParseConfig(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatYAML, FormatJSON, "":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, &Error{Err: fmt.Errorf("empty configuration document")}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, &Error{Err: fmt.Errorf("failed to parse config %s: %w", format, err)}
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, &Error{Err: fmt.Errorf("failed to parse config toml: %w", err)}
		}
	default:
		return nil, &Error{Err: fmt.Errorf("unsupported config format %q", format)}
	}

	ApplyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, &Error{Err: fmt.Errorf("invalid config: %w", err)}
	}

	return &cfg, nil
}

// ParseConfigYAMLString parses a Config from a YAML (or JSON) string.
func ParseConfigYAMLString(text string) (*Config, error) {
	return ParseConfig([]byte(text), FormatYAML)
}

// redactedSecret replaces secrets in configuration snapshots
const redactedSecret = "REDACTED"

// MarshalConfigYAML serializes a Config, used to snapshot it in the journal.
// The callback secret is redacted.
func MarshalConfigYAML(cfg *Config) (string, error) {
	snapshot := *cfg
	if snapshot.Status.CallbackSecret != "" {
		snapshot.Status.CallbackSecret = redactedSecret
	}
	data, err := yaml.Marshal(&snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config yaml: %w", err)
	}
	return string(data), nil
}
