// Package config loads the on-disk configuration for the model repository
// daemon: repository paths, namespacing/control-mode switches, poll cadence,
// startup models, and the HTTP surface's listen address and CORS policy.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modelrepo/internal/manager"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// StartupModelConfig is one model to load at startup when the daemon runs in
// explicit control mode.
type StartupModelConfig struct {
	Name   string            `json:"name" yaml:"name" toml:"name"`
	Params map[string]string `json:"params" yaml:"params" toml:"params"`
}

// CORSConfig mirrors internal/httpapi.SetCORSOptions' parameters.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Config holds runtime parameters for the model repository daemon. Zero
// values mean "unspecified" and are replaced by defaults in main.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	Repositories []string `json:"repositories" yaml:"repositories" toml:"repositories"`
	Namespacing  bool     `json:"namespacing" yaml:"namespacing" toml:"namespacing"`

	// PollingEnabled and ExplicitControl are mutually exclusive model
	// control modes; exactly one should be true.
	PollingEnabled  bool `json:"polling_enabled" yaml:"polling_enabled" toml:"polling_enabled"`
	ExplicitControl bool `json:"explicit_control" yaml:"explicit_control" toml:"explicit_control"`

	// PollIntervalSeconds and WaveTimeoutSeconds are plain seconds rather
	// than time.Duration so they round-trip through JSON/YAML/TOML without
	// a custom unmarshaler.
	PollIntervalSeconds int `json:"poll_interval_seconds" yaml:"poll_interval_seconds" toml:"poll_interval_seconds"`
	WaveTimeoutSeconds  int `json:"wave_timeout_seconds" yaml:"wave_timeout_seconds" toml:"wave_timeout_seconds"`

	StartupModels []StartupModelConfig `json:"startup_models" yaml:"startup_models" toml:"startup_models"`

	MaxBodyBytes int64      `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORS         CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ManagerConfig translates the on-disk config into manager.ManagerConfig.
// Durations are converted from the plain-seconds fields; a zero seconds
// value leaves the corresponding ManagerConfig field at zero, so
// ManagerConfig.withDefaults still applies the manager's own defaults.
func (c Config) ManagerConfig() manager.ManagerConfig {
	startup := make([]manager.StartupModel, 0, len(c.StartupModels))
	for _, sm := range c.StartupModels {
		startup = append(startup, manager.StartupModel{Name: sm.Name, Params: sm.Params})
	}
	return manager.ManagerConfig{
		Repositories:    append([]string(nil), c.Repositories...),
		Namespacing:     c.Namespacing,
		PollingEnabled:  c.PollingEnabled,
		ExplicitControl: c.ExplicitControl,
		PollInterval:    time.Duration(c.PollIntervalSeconds) * time.Second,
		WaveTimeout:     time.Duration(c.WaveTimeoutSeconds) * time.Second,
		StartupModels:   startup,
	}
}
