// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the deskrun configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

// Config is the top-level deskrun configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Engine  EngineConfig  `yaml:"engine"`
	Copy    CopyConfig    `yaml:"copy"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is one of json, text, auto.
	Format string `yaml:"format"`

	// AddSource adds file:line to log records.
	AddSource bool `yaml:"add_source"`
}

// EngineConfig configures the script engine agent.
type EngineConfig struct {
	// ProcessEventsInterval is how often a running script yields to service
	// stop and pause requests.
	ProcessEventsInterval time.Duration `yaml:"process_events_interval"`
}

// CopyConfig configures background copy jobs.
type CopyConfig struct {
	// PollInterval is the progress poll period.
	PollInterval time.Duration `yaml:"poll_interval"`

	// BufferSize is the worker's read buffer in bytes.
	BufferSize int `yaml:"buffer_size"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file. Defaults to the XDG data directory.
	Path string `yaml:"path"`
}

// MetricsConfig configures Prometheus metric collection.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path, if set, is a file that receives the text exposition of all
	// metrics when a run finishes.
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Engine: EngineConfig{
			ProcessEventsInterval: 50 * time.Millisecond,
		},
		Copy: CopyConfig{
			PollInterval: 50 * time.Millisecond,
			BufferSize:   64 * 1024,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    defaultHistoryPath(),
		},
	}
}

// Load loads configuration from an optional YAML file and the environment.
// Environment variables take precedence over the file. A missing file at
// the default location is not an error; a missing explicit path is.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	explicit := configPath != ""
	if !explicit {
		configPath, _ = ConfigPath()
	}

	if configPath != "" {
		err := cfg.loadFromFile(configPath)
		if err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
			return nil, &deskerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &deskerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// applyDefaults fills in zero values so minimal files work.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Engine.ProcessEventsInterval == 0 {
		c.Engine.ProcessEventsInterval = defaults.Engine.ProcessEventsInterval
	}
	if c.Copy.PollInterval == 0 {
		c.Copy.PollInterval = defaults.Copy.PollInterval
	}
	if c.Copy.BufferSize == 0 {
		c.Copy.BufferSize = defaults.Copy.BufferSize
	}
	if c.History.Path == "" {
		c.History.Path = defaults.History.Path
	}
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("DESKRUN_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	} else if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}

	if val := os.Getenv("DESKRUN_PROCESS_EVENTS_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Engine.ProcessEventsInterval = d
		}
	}
	if val := os.Getenv("DESKRUN_COPY_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Copy.PollInterval = d
		}
	}
	if val := os.Getenv("DESKRUN_COPY_BUFFER_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Copy.BufferSize = n
		}
	}
	if val := os.Getenv("DESKRUN_HISTORY"); val != "" {
		c.History.Enabled = val == "1" || strings.ToLower(val) == "true"
	}
	if val := os.Getenv("DESKRUN_HISTORY_PATH"); val != "" {
		c.History.Path = val
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true, "auto": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text, auto], got %q", c.Log.Format))
	}
	if c.Engine.ProcessEventsInterval < 0 {
		errs = append(errs, fmt.Sprintf("engine.process_events_interval must be positive, got %v", c.Engine.ProcessEventsInterval))
	}
	if c.Copy.PollInterval < 0 {
		errs = append(errs, fmt.Sprintf("copy.poll_interval must be positive, got %v", c.Copy.PollInterval))
	}
	if c.Copy.BufferSize < 512 {
		errs = append(errs, fmt.Sprintf("copy.buffer_size must be at least 512 bytes, got %d", c.Copy.BufferSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
