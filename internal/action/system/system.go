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

// Package system provides the System power action and registers the
// System host object.
package system

import (
	"context"
	"errors"
	"strings"

	"github.com/tombee/deskrun/internal/action"
	"github.com/tombee/deskrun/internal/host"
	"github.com/tombee/deskrun/internal/power"
)

// ExceptionNotAvailable is raised when the platform cannot perform the
// requested operation.
const ExceptionNotAvailable = power.KindNotAvailable

// Pack is the system action pack.
type Pack struct {
	ctrl power.Controller
	defs []*action.Definition
}

// New creates the pack. A nil controller selects the platform default.
func New(ctrl power.Controller) *Pack {
	if ctrl == nil {
		ctrl = power.New()
	}
	names := make([]string, 0, len(power.Operations()))
	for _, op := range power.Operations() {
		names = append(names, op.String())
	}

	p := &Pack{ctrl: ctrl}
	p.defs = []*action.Definition{
		{
			ID:          "System",
			Name:        "System",
			Description: "Performs a session or power operation",
			Parameters: []action.Parameter{
				{Name: "operation", Description: strings.Join(names, " | "), Required: true},
				{Name: "force", Description: "Skip confirmation and close applications", Default: false},
			},
			Exceptions: []string{ExceptionNotAvailable},
			New:        func() action.Executor { return &systemAction{ctrl: p.ctrl} },
		},
	}
	return p
}

func (p *Pack) ID() string                        { return "system" }
func (p *Pack) Name() string                      { return "System" }
func (p *Pack) Definitions() []*action.Definition { return p.defs }

// CodeInit registers the System object.
func (p *Pack) CodeInit(b *host.Bridge) error {
	return b.RegisterSystem()
}

type systemAction struct {
	ctrl power.Controller
}

func (s *systemAction) StartExecution(ctx context.Context, inst *action.Instance) error {
	params := inst.Params()
	name, err := params.String("operation")
	if err != nil {
		inst.Fail(action.ExceptionInvalidParameter, err.Error())
		return nil
	}
	op, err := power.ParseOperation(name)
	if err != nil {
		inst.Fail(action.ExceptionInvalidParameter, err.Error())
		return nil
	}
	force, err := params.Bool("force", false)
	if err != nil {
		inst.Fail(action.ExceptionInvalidParameter, err.Error())
		return nil
	}

	err = s.ctrl.Do(ctx, op, force)
	var na *power.NotAvailableError
	switch {
	case err == nil:
		inst.Complete()
	case errors.As(err, &na):
		inst.Fail(ExceptionNotAvailable, err.Error())
	default:
		return err
	}
	return nil
}

func (s *systemAction) StopExecution() {}
