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

// Package run implements the run command.
package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tombee/deskrun/internal/commands/completion"
	"github.com/tombee/deskrun/internal/commands/shared"
	"github.com/tombee/deskrun/internal/executer"
	"github.com/tombee/deskrun/internal/history"
	"github.com/tombee/deskrun/internal/sequence"
	"github.com/tombee/deskrun/internal/watch"
)

// NewCommand creates the run command.
func NewCommand() *cobra.Command {
	var (
		watchFlag bool
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a script or sequence",
		Long: `Run executes a JavaScript automation script, or a YAML action sequence
when the file ends in .yaml or .yml.

Exit codes:
  0  the run completed
  1  the script raised an exception
  2  the script or sequence could not be loaded
  3  the run was stopped (Ctrl-C, Execution.stop())`,
		Example: `  # Run a script
  deskrun run backup.js

  # Run a sequence and print the outcome as JSON
  deskrun run nightly.yaml --json

  # Rerun whenever a script in the directory changes
  deskrun run backup.js --watch`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteScriptFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := shared.NewRuntime(shared.RuntimeOptions{
				NoHistory: noHistory,
				Console:   consoleFor(cmd),
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			r := &runner{rt: rt, out: cmd.OutOrStdout(), path: args[0]}
			if watchFlag {
				return r.watch(ctx)
			}
			return r.finish(r.once(ctx))
		},
	}

	cmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Rerun when scripts in the directory change")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the run in history")

	return cmd
}

// consoleFor sends script output to the command's streams. With --json,
// stdout is reserved for the result document.
func consoleFor(cmd *cobra.Command) *executer.Console {
	console := executer.NewConsole()
	console.Out = cmd.OutOrStdout()
	console.Err = cmd.ErrOrStderr()
	if shared.GetJSON() {
		console.Out = cmd.ErrOrStderr()
	}
	return console
}

type runner struct {
	rt   *shared.Runtime
	out  io.Writer
	path string
}

// once runs the script or sequence at r.path.
func (r *runner) once(ctx context.Context) *executer.Outcome {
	if !sequence.IsSequenceFile(r.path) {
		return r.rt.Executer.RunCode(ctx, r.path)
	}

	seq, err := sequence.Load(r.path)
	if err != nil {
		now := time.Now()
		return &executer.Outcome{
			Script:    r.path,
			Kind:      history.KindSequence,
			Status:    history.StatusInvalid,
			ErrorKind: "SequenceError",
			Message:   err.Error(),
			StartedAt: now,
			EndedAt:   now,
		}
	}
	return r.rt.Executer.RunSequence(ctx, seq)
}

// finish reports out, exports metrics and maps the outcome to an exit error.
func (r *runner) finish(out *executer.Outcome) error {
	r.writeMetrics()

	if shared.GetJSON() {
		if err := shared.EmitJSON(newResponse(out)); err != nil {
			return err
		}
		if code := exitCodeFor(out.Status); code != shared.ExitSuccess {
			return &shared.ExitError{Code: code}
		}
		return nil
	}

	printOutcome(r.out, out)
	return exitErrorFor(out)
}

func (r *runner) writeMetrics() {
	cfg := r.rt.Config.Metrics
	if !cfg.Enabled || cfg.Path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(cfg.Path, prometheus.DefaultGatherer); err != nil {
		r.rt.Logger.Warn("failed to write metrics", "path", cfg.Path, "error", err)
	}
}

// watch reruns the script each time a file under its directory changes.
// A change during a run stops that run first.
func (r *runner) watch(ctx context.Context) error {
	abs, err := filepath.Abs(r.path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	w, err := watch.New(dir, nil, 0, r.rt.Logger)
	if err != nil {
		return err
	}

	changes := make(chan []string, 1)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Run(ctx, func(paths []string) {
			select {
			case changes <- paths:
			default:
			}
			r.rt.Executer.Stop()
		})
	}()

	for {
		out := r.once(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if shared.GetJSON() {
			if err := shared.EmitJSON(newResponse(out)); err != nil {
				return err
			}
		} else {
			printOutcome(r.out, out)
			if err := out.Err(); err != nil && out.Status != history.StatusStopped {
				fmt.Fprintln(r.out, shared.RenderError(err.Error()))
			}
		}
		r.writeMetrics()

		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			if err == nil {
				return nil
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		case paths := <-changes:
			r.rt.Logger.Info("change detected, rerunning", "paths", paths)
		}
	}
}

func exitCodeFor(status history.Status) int {
	switch status {
	case history.StatusCompleted:
		return shared.ExitSuccess
	case history.StatusStopped:
		return shared.ExitStopped
	case history.StatusInvalid:
		return shared.ExitInvalidScript
	default:
		return shared.ExitScriptFailed
	}
}

func exitErrorFor(out *executer.Outcome) error {
	switch out.Status {
	case history.StatusCompleted:
		return nil
	case history.StatusStopped:
		return shared.NewStoppedError("run stopped")
	case history.StatusInvalid:
		return shared.NewInvalidScriptError("", out.Err())
	default:
		return shared.NewScriptFailedError("", out.Err())
	}
}
