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

package sequence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tombee/deskrun/internal/action"
	desklog "github.com/tombee/deskrun/internal/log"
)

// StatusSkipped marks a step whose condition was false, and StatusPending
// one that has not run yet.
const (
	StatusSkipped = "skipped"
	StatusPending = "pending"
)

// DefaultMaxSteps bounds the number of steps one run executes, so a goto
// cycle cannot run forever.
const DefaultMaxSteps = 10000

// StepFunc runs a single step and returns its terminal result.
type StepFunc func(ctx context.Context, step *Step) action.Result

// StepOutcome is what happened to one executed or skipped step.
type StepOutcome struct {
	StepID string
	Action string
	Status string
	Result action.Result
}

// Report is the outcome of a sequence run.
type Report struct {
	Steps []StepOutcome

	// Result is Completed, Failed with the exception that stopped the
	// sequence, or Stopped.
	Result action.Result

	// FailedStep is the step that ended a failed run.
	FailedStep string
}

// Runner executes sequences.
type Runner struct {
	Conditions *Conditions
	MaxSteps   int
	Logger     *slog.Logger
}

// NewRunner creates a runner with defaults.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = desklog.Discard()
	}
	return &Runner{Conditions: NewConditions(), MaxSteps: DefaultMaxSteps, Logger: logger}
}

// Run executes seq from its first step. Steps run one at a time on the
// calling goroutine.
func (r *Runner) Run(ctx context.Context, seq *Sequence, run StepFunc) *Report {
	report := &Report{}
	index := seq.index()
	state := make(map[string]any, len(seq.Actions))
	for _, step := range seq.Actions {
		state[step.ID] = map[string]any{"status": StatusPending, "exception": "", "message": ""}
	}
	env := map[string]any{"steps": state}

	record := func(step *Step, status string, res action.Result) {
		report.Steps = append(report.Steps, StepOutcome{StepID: step.ID, Action: step.Action, Status: status, Result: res})
		state[step.ID] = map[string]any{"status": status, "exception": res.Exception, "message": res.Message}
	}
	fail := func(step *Step, res action.Result) *Report {
		report.Result = res
		report.FailedStep = step.ID
		return report
	}

	executed := 0
	for i := 0; i < len(seq.Actions); {
		step := &seq.Actions[i]

		if ctx.Err() != nil {
			report.Result = action.Result{State: action.StateStopped}
			return report
		}
		executed++
		if executed > r.MaxSteps {
			return fail(step, action.Result{
				State:     action.StateFailed,
				Exception: action.ExceptionCodeError,
				Message:   fmt.Sprintf("step limit of %d exceeded", r.MaxSteps),
			})
		}

		ok, err := r.Conditions.Eval(step.If, env)
		if err != nil {
			return fail(step, action.Result{State: action.StateFailed, Exception: action.ExceptionCodeError, Message: err.Error()})
		}
		if !ok {
			r.Logger.Debug("step skipped", slog.String(desklog.StepIDKey, step.ID))
			record(step, StatusSkipped, action.Result{})
			i++
			continue
		}

		res := run(ctx, step)
		record(step, res.State.String(), res)

		switch res.State {
		case action.StateCompleted:
			i++
		case action.StateStopped:
			report.Result = res
			return report
		default:
			h, found := step.OnException[res.Exception]
			if !found {
				h, found = step.OnException[AnyException]
			}
			if !found {
				h = Handler{Do: DoStop}
			}
			r.Logger.Info("step raised exception",
				slog.String(desklog.StepIDKey, step.ID),
				slog.String(desklog.KindKey, res.Exception),
				slog.String("handler", h.Do))

			switch h.Do {
			case DoSkip:
				i++
			case DoGoto:
				target, exists := index[h.Target]
				if !exists {
					return fail(step, res)
				}
				i = target
			default:
				return fail(step, res)
			}
		}
	}

	report.Result = action.Result{State: action.StateCompleted}
	return report
}
