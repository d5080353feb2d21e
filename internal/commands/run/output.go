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

package run

import (
	"fmt"
	"io"
	"time"

	"github.com/tombee/deskrun/internal/commands/shared"
	"github.com/tombee/deskrun/internal/executer"
	"github.com/tombee/deskrun/internal/history"
)

// RunResponse is the --json result of a run.
type RunResponse struct {
	shared.JSONResponse
	RunID      string            `json:"run_id"`
	Script     string            `json:"script"`
	Kind       string            `json:"kind"`
	Status     string            `json:"status"`
	DurationMs int64             `json:"duration_ms"`
	Error      *shared.JSONError `json:"error,omitempty"`
	Steps      []StepResponse    `json:"steps,omitempty"`
}

// StepResponse is one sequence step in RunResponse.
type StepResponse struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Exception string `json:"exception,omitempty"`
	Message   string `json:"message,omitempty"`
}

func newResponse(out *executer.Outcome) RunResponse {
	resp := RunResponse{
		JSONResponse: shared.JSONResponse{
			Version: "1.0",
			Command: "run",
			Success: out.Status == history.StatusCompleted,
		},
		RunID:      out.RunID,
		Script:     out.Script,
		Kind:       string(out.Kind),
		Status:     string(out.Status),
		DurationMs: out.EndedAt.Sub(out.StartedAt).Milliseconds(),
	}

	if out.Status == history.StatusFailed || out.Status == history.StatusInvalid {
		resp.Error = &shared.JSONError{
			Code:    out.ErrorKind,
			Message: out.Message,
		}
		if out.Line > 0 {
			resp.Error.Location = &shared.JSONLocation{File: out.Script, Line: out.Line}
		}
	}

	for _, s := range out.Steps {
		resp.Steps = append(resp.Steps, StepResponse{
			ID:        s.StepID,
			Action:    s.Action,
			Status:    s.Status,
			Exception: s.Exception,
			Message:   s.Message,
		})
		if resp.Error != nil && s.Exception != "" {
			resp.Error.StepID = s.StepID
		}
	}
	return resp
}

// printOutcome writes a human summary. Failure details are left to the
// returned exit error.
func printOutcome(w io.Writer, out *executer.Outcome) {
	if shared.GetQuiet() {
		return
	}

	for _, s := range out.Steps {
		line := fmt.Sprintf("%-16s %-12s %s", s.StepID, s.Action, s.Status)
		if s.Exception != "" {
			line += " " + shared.RenderLabel(s.Exception)
		}
		fmt.Fprintln(w, "  "+line)
	}

	elapsed := out.EndedAt.Sub(out.StartedAt).Round(time.Millisecond)
	switch out.Status {
	case history.StatusCompleted:
		fmt.Fprintln(w, shared.RenderOK(fmt.Sprintf("%s completed in %s", out.Script, elapsed)))
	case history.StatusStopped:
		fmt.Fprintln(w, shared.RenderWarn(fmt.Sprintf("%s stopped after %s", out.Script, elapsed)))
	}
}
