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

// Package flow provides control actions: Code runs a snippet in the
// owning script engine and Pause waits.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tombee/deskrun/internal/action"
)

// Action ids.
const (
	ActionCode  = "Code"
	ActionPause = "Pause"
)

// MaxPauseDuration bounds the Pause action.
const MaxPauseDuration = 24 * time.Hour

// Pack is the flow action pack.
type Pack struct {
	defs []*action.Definition
}

// New creates the pack.
func New() *Pack {
	return &Pack{defs: []*action.Definition{
		{
			ID:          ActionCode,
			Name:        "Code",
			Description: "Runs script code in the run's engine",
			Parameters:  []action.Parameter{{Name: "code", Description: "Script source", Required: true}},
			New:         func() action.Executor { return codeAction{} },
		},
		{
			ID:          ActionPause,
			Name:        "Pause",
			Description: "Waits for a duration",
			Parameters: []action.Parameter{
				{Name: "duration", Description: `Milliseconds, or a duration such as "1.5s"`, Required: true},
			},
			New: func() action.Executor { return pauseAction{} },
		},
	}}
}

func (p *Pack) ID() string                        { return "flow" }
func (p *Pack) Name() string                      { return "Flow" }
func (p *Pack) Definitions() []*action.Definition { return p.defs }

type codeAction struct{}

func (codeAction) StartExecution(ctx context.Context, inst *action.Instance) error {
	code, err := inst.Params().String("code")
	if err != nil {
		inst.Fail(action.ExceptionInvalidParameter, err.Error())
		return nil
	}
	scripts := inst.Scripts()
	if scripts == nil {
		return errors.New("no script engine available")
	}

	err = scripts.RunCode(ctx, code)
	switch {
	case err == nil:
		inst.Complete()
	case errors.Is(err, context.Canceled):
		inst.Stop()
	default:
		inst.Fail(action.ExceptionCodeError, err.Error())
	}
	return nil
}

func (codeAction) StopExecution() {}

type pauseAction struct{}

func (pauseAction) StartExecution(ctx context.Context, inst *action.Instance) error {
	d, err := inst.Params().Duration("duration", -1)
	if err == nil && d < 0 {
		err = &action.ParameterError{Name: "duration", Reason: "is required"}
	}
	if err == nil && d > MaxPauseDuration {
		err = fmt.Errorf("duration %v exceeds maximum allowed (%v)", d, MaxPauseDuration)
	}
	if err != nil {
		inst.Fail(action.ExceptionInvalidParameter, err.Error())
		return nil
	}

	// ctx ends when the instance does, so a stopped pause leaves the
	// goroutine immediately.
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			inst.Complete()
		case <-ctx.Done():
		}
	}()
	return nil
}

func (pauseAction) StopExecution() {}
