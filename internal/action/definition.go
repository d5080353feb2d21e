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

// Package action defines automation actions and the lifecycle every
// action instance follows: Idle, Running, then exactly one of Completed,
// Failed or Stopped.
package action

import (
	"context"
	"slices"
)

// State is the lifecycle state of an Instance.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateStopped   State = "stopped"
)

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// Terminal reports whether s is an end state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateStopped
}

// Exceptions every action can raise.
const (
	ExceptionCodeError        = "CodeErrorException"
	ExceptionInvalidParameter = "InvalidParameterException"
	ExceptionTimeout          = "TimeoutException"
)

// StandardExceptions lists the exceptions shared by every definition.
var StandardExceptions = []string{ExceptionCodeError, ExceptionInvalidParameter, ExceptionTimeout}

// Parameter describes one input of an action.
type Parameter struct {
	Name        string
	Description string
	Required    bool
	Default     any
}

// Definition is the static, shared description of an action type.
type Definition struct {
	// ID is the unique identifier used in sequences and scripts (e.g. "CopyFile").
	ID string

	// Name is the human-readable name.
	Name string

	Description string

	// Pack is the id of the pack that provides the action.
	Pack string

	Parameters []Parameter

	// Exceptions lists the action-specific exceptions in addition to
	// StandardExceptions.
	Exceptions []string

	// New creates the executor for one instance.
	New func() Executor
}

// Declares reports whether the definition can raise exception.
func (d *Definition) Declares(exception string) bool {
	return slices.Contains(StandardExceptions, exception) || slices.Contains(d.Exceptions, exception)
}

// AllExceptions returns the standard exceptions followed by the
// action-specific ones.
func (d *Definition) AllExceptions() []string {
	out := make([]string, 0, len(StandardExceptions)+len(d.Exceptions))
	out = append(out, StandardExceptions...)
	return append(out, d.Exceptions...)
}

// Executor is the behavior of one action type, bound to one instance.
//
// StartExecution begins the work. It may finish synchronously by calling
// inst.Complete or inst.Fail before returning, or arrange for one of them
// to be called later from another goroutine. A returned error fails the
// instance with ExceptionCodeError.
//
// StopExecution is called at most once, when a running instance is stopped.
type Executor interface {
	StartExecution(ctx context.Context, inst *Instance) error
	StopExecution()
}

// Pack groups related action definitions.
type Pack interface {
	ID() string
	Name() string
	Definitions() []*Definition
}
