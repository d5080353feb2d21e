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

package action

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	desklog "github.com/tombee/deskrun/internal/log"
)

// Result is the terminal outcome of an instance.
type Result struct {
	State     State
	Exception string
	Message   string
}

// Observer receives instance events. Calls may arrive from any goroutine
// but never concurrently for the same instance. Observers must not call
// Stop, Complete or Fail on the instance they are notified about.
type Observer interface {
	ProgressUpdated(inst *Instance, percent int)
	ProgressHidden(inst *Instance)
	ExecutionEnded(inst *Instance, result Result)
}

// ScriptRunner evaluates code in the script run that owns an instance.
type ScriptRunner interface {
	RunCode(ctx context.Context, code string) error
}

// Option configures an Instance.
type Option func(*Instance)

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(i *Instance) { i.observer = o }
}

// WithLogger sets the instance logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Instance) { i.logger = l }
}

// WithScriptRunner gives the instance access to the owning script engine.
func WithScriptRunner(r ScriptRunner) Option {
	return func(i *Instance) { i.scripts = r }
}

// WithStepID tags the instance with the sequence step it belongs to.
func WithStepID(id string) Option {
	return func(i *Instance) { i.stepID = id }
}

// Instance is one execution of a Definition.
type Instance struct {
	def      *Definition
	exec     Executor
	params   Params
	logger   *slog.Logger
	observer Observer
	scripts  ScriptRunner
	stepID   string

	mu       sync.Mutex
	state    State
	progress int
	result   Result
	cleanups []func()
	ended    bool
	started  time.Time

	cancel context.CancelFunc
	done   chan struct{}

	// observerMu serializes observer calls.
	observerMu sync.Mutex
}

// NewInstance creates an idle instance of def.
func NewInstance(def *Definition, params map[string]any, opts ...Option) *Instance {
	i := &Instance{
		def:    def,
		params: Params(params),
		state:  StateIdle,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = desklog.Discard()
	}
	i.logger = desklog.WithActionContext(i.logger, def.ID, i.stepID)
	if def.New != nil {
		i.exec = def.New()
	}
	return i
}

// Definition returns the shared definition.
func (i *Instance) Definition() *Definition { return i.def }

// Params returns the instance parameters.
func (i *Instance) Params() Params { return i.params }

// Logger returns the instance logger.
func (i *Instance) Logger() *slog.Logger { return i.logger }

// Scripts returns the script runner, or nil if the instance was created
// outside a script run.
func (i *Instance) Scripts() ScriptRunner { return i.scripts }

// StepID returns the sequence step id, if any.
func (i *Instance) StepID() string { return i.stepID }

// State returns the current state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Progress returns the last reported percentage.
func (i *Instance) Progress() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.progress
}

// Done is closed once the instance has reached a terminal state and its
// cleanup has run.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Result returns the terminal result. Only meaningful after Done is closed.
func (i *Instance) Result() Result {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.result
}

// Wait blocks until the instance ends or ctx is cancelled. Cancellation
// stops the instance and still waits for its cleanup.
func (i *Instance) Wait(ctx context.Context) Result {
	select {
	case <-i.done:
	case <-ctx.Done():
		i.Stop()
		<-i.done
	}
	return i.Result()
}

// AddCleanup registers fn to run once when the instance ends, whatever the
// terminal state. Cleanups run in reverse registration order. If the
// instance has already ended, fn runs immediately.
func (i *Instance) AddCleanup(fn func()) {
	i.mu.Lock()
	if i.ended {
		i.mu.Unlock()
		fn()
		return
	}
	i.cleanups = append(i.cleanups, fn)
	i.mu.Unlock()
}

// Start moves an idle instance to Running and starts its executor.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.state != StateIdle {
		state := i.state
		i.mu.Unlock()
		return fmt.Errorf("action %s: cannot start from state %s", i.def.ID, state)
	}
	if i.exec == nil {
		i.mu.Unlock()
		return fmt.Errorf("action %s: no executor", i.def.ID)
	}
	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	i.state = StateRunning
	i.started = time.Now()
	i.mu.Unlock()

	i.logger.Debug("action started")

	if err := i.exec.StartExecution(ctx, i); err != nil {
		i.Fail(ExceptionCodeError, err.Error())
	}
	return nil
}

// Stop cancels a running instance. Stopping an idle instance moves it
// straight to Stopped; stopping a terminal instance does nothing.
func (i *Instance) Stop() {
	i.mu.Lock()
	switch i.state {
	case StateRunning:
		i.state = StateStopped
		i.mu.Unlock()
		i.exec.StopExecution()
	case StateIdle:
		i.state = StateStopped
		i.mu.Unlock()
	default:
		i.mu.Unlock()
		return
	}
	i.finish(Result{State: StateStopped})
}

// Complete marks a running instance as successfully finished.
func (i *Instance) Complete() {
	if i.transition(StateCompleted) {
		i.finish(Result{State: StateCompleted})
	}
}

// Fail marks a running instance as failed with exception. Exceptions the
// definition does not declare are reported as ExceptionCodeError.
func (i *Instance) Fail(exception, message string) {
	if !i.def.Declares(exception) {
		message = fmt.Sprintf("%s: %s", exception, message)
		exception = ExceptionCodeError
	}
	if i.transition(StateFailed) {
		i.finish(Result{State: StateFailed, Exception: exception, Message: message})
	}
}

// SetProgress records and forwards a progress percentage.
func (i *Instance) SetProgress(percent int) {
	i.mu.Lock()
	if i.state != StateRunning {
		i.mu.Unlock()
		return
	}
	i.progress = percent
	i.mu.Unlock()

	if i.observer != nil {
		i.observerMu.Lock()
		i.observer.ProgressUpdated(i, percent)
		i.observerMu.Unlock()
	}
}

// HideProgress forwards the terminal progress signal.
func (i *Instance) HideProgress() {
	if i.observer != nil {
		i.observerMu.Lock()
		i.observer.ProgressHidden(i)
		i.observerMu.Unlock()
	}
}

func (i *Instance) transition(to State) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateRunning {
		return false
	}
	i.state = to
	return true
}

// finish is the single teardown path for every terminal state. Callers
// guarantee it runs once by winning the state transition first.
func (i *Instance) finish(res Result) {
	i.mu.Lock()
	cleanups := i.cleanups
	i.cleanups = nil
	i.ended = true
	cancel := i.cancel
	started := i.started
	i.result = res
	i.mu.Unlock()

	for n := len(cleanups) - 1; n >= 0; n-- {
		cleanups[n]()
	}
	if cancel != nil {
		cancel()
	}

	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = time.Since(started)
	}
	recordExecution(i.def.ID, res.State, elapsed)

	attrs := []any{slog.String("state", res.State.String()), desklog.Duration("duration", elapsed.Milliseconds())}
	if res.State == StateFailed {
		attrs = append(attrs, slog.String(desklog.KindKey, res.Exception), slog.String("message", res.Message))
		i.logger.Warn("action failed", attrs...)
	} else {
		i.logger.Debug("action ended", attrs...)
	}

	close(i.done)

	if i.observer != nil {
		i.observerMu.Lock()
		i.observer.ExecutionEnded(i, res)
		i.observerMu.Unlock()
	}
}
