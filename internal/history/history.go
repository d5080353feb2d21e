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

// Package history records finished script runs.
package history

import (
	"context"
	"errors"
	"time"
)

// Status is the terminal status of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"

	// StatusInvalid marks a script that could not be compiled or parsed.
	StatusInvalid Status = "invalid"
)

// Kind tells code runs and sequence runs apart.
type Kind string

const (
	KindCode     Kind = "code"
	KindSequence Kind = "sequence"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one finished script run.
type Run struct {
	ID     string
	Script string
	Kind   Kind
	Status Status

	// ErrorKind is the exception name for failed runs.
	ErrorKind    string
	ErrorMessage string

	StartedAt time.Time
	EndedAt   time.Time

	// Steps holds per-step outcomes for sequence runs.
	Steps []StepResult
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// StepResult is the outcome of one sequence step.
type StepResult struct {
	StepID    string
	Action    string
	Status    string
	Exception string
	Message   string
}

// Filter narrows List results.
type Filter struct {
	Status Status
	Script string
	Limit  int
}

// Store persists runs.
type Store interface {
	Record(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, filter Filter) ([]*Run, error)
	Close() error
}
