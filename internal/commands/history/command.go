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

// Package history implements the history command.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/deskrun/internal/commands/completion"
	"github.com/tombee/deskrun/internal/commands/shared"
	"github.com/tombee/deskrun/internal/history"
)

// NewCommand creates the history command.
func NewCommand() *cobra.Command {
	var (
		limit  int
		status string
		script string
		failed bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Long: `List finished runs, newest first.

See also: deskrun history show, deskrun run`,
		Example: `  # Show the last 20 runs
  deskrun history

  # Show failed runs of one script
  deskrun history --failed --script backup.js

  # Get runs as JSON
  deskrun history --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if failed {
				status = string(history.StatusFailed)
			}
			return withStore(func(store history.Store) error {
				return list(cmd.Context(), cmd.OutOrStdout(), store, history.Filter{
					Status: history.Status(status),
					Script: script,
					Limit:  limit,
				})
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (completed, failed, stopped, invalid)")
	cmd.Flags().StringVar(&script, "script", "", "Filter by script path")
	cmd.Flags().BoolVar(&failed, "failed", false, "Show only failed runs (shorthand for --status failed)")

	cmd.AddCommand(newShowCommand())

	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "show <run-id>",
		Short:             "Show one run",
		Long:              `Display a run and, for sequences, the outcome of each step.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteRunIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store history.Store) error {
				return show(cmd.Context(), cmd.OutOrStdout(), store, args[0])
			})
		},
	}
}

func withStore(fn func(history.Store) error) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return &shared.ExitError{Code: shared.ExitScriptFailed, Message: "run history is disabled in the configuration"}
	}
	store, err := shared.OpenHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// RunJSON is a run in --json output.
type RunJSON struct {
	ID         string     `json:"id"`
	Script     string     `json:"script"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Message    string     `json:"message,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	DurationMs int64      `json:"duration_ms"`
	Steps      []StepJSON `json:"steps,omitempty"`
}

// StepJSON is a sequence step in --json output.
type StepJSON struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Exception string `json:"exception,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ListResponse is the --json output of history.
type ListResponse struct {
	shared.JSONResponse
	Runs []RunJSON `json:"runs"`
}

// ShowResponse is the --json output of history show.
type ShowResponse struct {
	shared.JSONResponse
	Run RunJSON `json:"run"`
}

func toJSON(r *history.Run) RunJSON {
	out := RunJSON{
		ID:         r.ID,
		Script:     r.Script,
		Kind:       string(r.Kind),
		Status:     string(r.Status),
		ErrorKind:  r.ErrorKind,
		Message:    r.ErrorMessage,
		StartedAt:  r.StartedAt,
		DurationMs: r.Duration().Milliseconds(),
	}
	for _, s := range r.Steps {
		out.Steps = append(out.Steps, StepJSON{
			ID:        s.StepID,
			Action:    s.Action,
			Status:    s.Status,
			Exception: s.Exception,
			Message:   s.Message,
		})
	}
	return out
}

func list(ctx context.Context, w io.Writer, store history.Store, filter history.Filter) error {
	runs, err := store.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if shared.GetJSON() {
		resp := ListResponse{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "history", Success: true},
			Runs:         make([]RunJSON, 0, len(runs)),
		}
		for _, r := range runs {
			resp.Runs = append(resp.Runs, toJSON(r))
		}
		return shared.EmitJSON(resp)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintln(w, shared.Header.Render(fmt.Sprintf("%-8s %-10s %-9s %-30s %-19s %s", "ID", "STATUS", "KIND", "SCRIPT", "STARTED", "DURATION")))
	for _, r := range runs {
		fmt.Fprintf(w, "%-8s %s %-9s %-30s %-19s %s\n",
			shortID(r.ID),
			renderStatus(r.Status, 10),
			r.Kind,
			truncate(r.Script, 30),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Millisecond),
		)
	}
	return nil
}

func show(ctx context.Context, w io.Writer, store history.Store, id string) error {
	r, err := store.Get(ctx, id)
	if errors.Is(err, history.ErrNotFound) {
		return &shared.ExitError{Code: shared.ExitScriptFailed, Message: fmt.Sprintf("run %s not found", id)}
	}
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(ShowResponse{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "history show", Success: true},
			Run:          toJSON(r),
		})
	}

	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Run:     "), r.ID)
	fmt.Fprintf(w, "%s %s (%s)\n", shared.RenderLabel("Script:  "), r.Script, r.Kind)
	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Status:  "), renderStatus(r.Status, 0))
	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Started: "), r.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Duration:"), r.Duration().Round(time.Millisecond))
	if r.ErrorKind != "" || r.ErrorMessage != "" {
		fmt.Fprintf(w, "%s %s: %s\n", shared.RenderLabel("Error:   "), r.ErrorKind, r.ErrorMessage)
	}

	if len(r.Steps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, shared.Header.Render("Steps"))
		for _, s := range r.Steps {
			line := fmt.Sprintf("  %-16s %-12s %s", s.StepID, s.Action, s.Status)
			if s.Exception != "" {
				line += fmt.Sprintf(" %s: %s", s.Exception, s.Message)
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func renderStatus(status history.Status, width int) string {
	text := fmt.Sprintf("%-*s", width, status)
	switch status {
	case history.StatusCompleted:
		return shared.StatusOK.Render(text)
	case history.StatusStopped:
		return shared.StatusWarn.Render(text)
	default:
		return shared.StatusError.Render(text)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n+3:]
}
