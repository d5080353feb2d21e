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

package shared

import (
	"fmt"
	"log/slog"

	"github.com/tombee/deskrun/internal/action"
	"github.com/tombee/deskrun/internal/action/data"
	"github.com/tombee/deskrun/internal/action/flow"
	"github.com/tombee/deskrun/internal/action/system"
	"github.com/tombee/deskrun/internal/config"
	"github.com/tombee/deskrun/internal/copyjob"
	"github.com/tombee/deskrun/internal/executer"
	"github.com/tombee/deskrun/internal/fileop"
	"github.com/tombee/deskrun/internal/history"
	desklog "github.com/tombee/deskrun/internal/log"
	"github.com/tombee/deskrun/internal/power"
)

// Runtime is everything a command needs to run scripts.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Factory  *action.Factory
	History  history.Store
	Executer *executer.Executer
}

// RuntimeOptions tweaks NewRuntime.
type RuntimeOptions struct {
	// NoHistory skips opening the history store.
	NoHistory bool

	// Console overrides the script console.
	Console *executer.Console
}

// LoadConfig loads the configuration named by --config.
func LoadConfig() (*config.Config, error) {
	return config.Load(GetConfigPath())
}

// NewLogger builds the command logger from cfg and the global flags.
func NewLogger(cfg *config.Config) *slog.Logger {
	logCfg := desklog.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = desklog.Format(cfg.Log.Format)
	logCfg.AddSource = cfg.Log.AddSource
	switch {
	case GetVerbose():
		logCfg.Level = "debug"
	case GetQuiet():
		logCfg.Level = "error"
	}
	return desklog.New(logCfg)
}

// NewFactory registers the built-in action packs.
func NewFactory(cfg *config.Config, ctrl power.Controller) (*action.Factory, error) {
	factory := action.NewFactory()
	packs := []action.Pack{
		data.New(copyjob.Options{
			PollInterval: cfg.Copy.PollInterval,
			BufferSize:   cfg.Copy.BufferSize,
		}),
		system.New(ctrl),
		flow.New(),
	}
	for _, p := range packs {
		if err := factory.Register(p); err != nil {
			return nil, err
		}
	}
	return factory, nil
}

// OpenHistory opens the configured history store, or returns nil when
// history is disabled.
func OpenHistory(cfg *config.Config) (history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(history.Config{Path: cfg.History.Path, WAL: true})
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// NewRuntime loads configuration and wires an executer.
func NewRuntime(opts RuntimeOptions) (*Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg)

	ctrl := power.New()
	factory, err := NewFactory(cfg, ctrl)
	if err != nil {
		return nil, err
	}

	var store history.Store
	if !opts.NoHistory {
		store, err = OpenHistory(cfg)
		if err != nil {
			return nil, err
		}
	}

	console := opts.Console
	if console == nil {
		console = executer.NewConsole()
	}

	exec := executer.New(factory, executer.Options{
		ProcessEventsInterval: cfg.Engine.ProcessEventsInterval,
		Console:               console,
		Files:                 fileop.Instrument(fileop.New(), fileop.NewSlogAuditLogger(logger)),
		Power:                 ctrl,
		History:               store,
		Logger:                logger,
	})

	return &Runtime{
		Config:   cfg,
		Logger:   logger,
		Factory:  factory,
		History:  store,
		Executer: exec,
	}, nil
}

// Close releases the history store.
func (r *Runtime) Close() error {
	if r.History != nil {
		return r.History.Close()
	}
	return nil
}
