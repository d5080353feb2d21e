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

package executer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/tombee/deskrun/internal/action"
	"github.com/tombee/deskrun/internal/fileop"
	"github.com/tombee/deskrun/internal/history"
	"github.com/tombee/deskrun/internal/host"
	desklog "github.com/tombee/deskrun/internal/log"
	"github.com/tombee/deskrun/internal/power"
	"github.com/tombee/deskrun/internal/sequence"
	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

// Outcome is the result of one run.
type Outcome struct {
	RunID  string
	Script string
	Kind   history.Kind
	Status history.Status

	// ErrorKind and Message describe failed and invalid runs. Line is where
	// a thrown Error object was constructed, or the throw statement for a
	// thrown primitive.
	ErrorKind string
	Message   string
	Line      int

	StartedAt time.Time
	EndedAt   time.Time

	Steps []history.StepResult
}

// Err returns nil for completed runs, ErrStopped for stopped runs and a
// *deskerrors.ScriptError otherwise.
func (o *Outcome) Err() error {
	switch o.Status {
	case history.StatusCompleted:
		return nil
	case history.StatusStopped:
		return ErrStopped
	default:
		return &deskerrors.ScriptError{Kind: o.ErrorKind, Message: o.Message, File: o.Script, Line: o.Line}
	}
}

// Options configures an Executer.
type Options struct {
	ProcessEventsInterval time.Duration
	Console               *Console
	Core                  host.CoreOptions
	Files                 fileop.Adapter
	Power                 power.Controller

	// History, if set, receives every finished run.
	History history.Store

	Logger *slog.Logger
}

// Executer runs scripts and sequences. Each run gets a fresh engine.
type Executer struct {
	factory *action.Factory
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	current *Agent
}

// New creates an executer over the packs registered in factory.
func New(factory *action.Factory, opts Options) *Executer {
	logger := opts.Logger
	if logger == nil {
		logger = desklog.Discard()
	}
	return &Executer{
		factory: factory,
		opts:    opts,
		logger:  desklog.WithComponent(logger, "executer"),
	}
}

// Stop requests the current run, if any, to stop.
func (e *Executer) Stop() {
	e.mu.Lock()
	agent := e.current
	e.mu.Unlock()
	if agent != nil {
		agent.Stop()
	}
}

// Pause suspends the current run at its next host call.
func (e *Executer) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.Pause()
	}
}

// Resume continues a paused run.
func (e *Executer) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.Resume()
	}
}

// Compile reads and compiles the script file filename without running it.
// The error is a *deskerrors.ScriptError of kind LoadFileError or
// SyntaxError.
func Compile(filename string) (*goja.Program, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, &deskerrors.ScriptError{Kind: host.KindLoadFile, Message: err.Error(), File: filename, Cause: err}
	}
	program, err := goja.Compile(filename, LowerIncludes(string(src)), false)
	if err != nil {
		return nil, &deskerrors.ScriptError{Kind: "SyntaxError", Message: err.Error(), File: filename, Cause: err}
	}
	return program, nil
}

// RunCode runs the script file filename until it completes, fails or is
// stopped. Cancelling ctx stops the run.
func (e *Executer) RunCode(ctx context.Context, filename string) *Outcome {
	out := e.newOutcome(filename, history.KindCode)

	program, err := Compile(filename)
	if err != nil {
		var se *deskerrors.ScriptError
		errors.As(err, &se)
		out.Status = history.StatusInvalid
		out.ErrorKind = se.Kind
		out.Message = se.Message
		return e.finish(ctx, out)
	}

	s, err := e.newSession(ctx, out)
	if err != nil {
		out.Status = history.StatusFailed
		out.ErrorKind = host.KindInternal
		out.Message = err.Error()
		return e.finish(ctx, out)
	}
	defer s.close()

	_, err = s.vm.RunProgram(program)
	s.classify(err, out)
	return e.finish(ctx, out)
}

// RunSequence runs seq step by step. Code steps share one engine.
func (e *Executer) RunSequence(ctx context.Context, seq *sequence.Sequence) *Outcome {
	out := e.newOutcome(seq.Filename, history.KindSequence)

	if err := seq.Validate(e.factory); err != nil {
		out.Status = history.StatusInvalid
		out.ErrorKind = deskerrors.KindOf(err)
		if out.ErrorKind == "" {
			out.ErrorKind = action.ExceptionInvalidParameter
		}
		out.Message = err.Error()
		return e.finish(ctx, out)
	}

	s, err := e.newSession(ctx, out)
	if err != nil {
		out.Status = history.StatusFailed
		out.ErrorKind = host.KindInternal
		out.Message = err.Error()
		return e.finish(ctx, out)
	}
	defer s.close()

	runner := sequence.NewRunner(s.logger)
	report := runner.Run(s.ctx, seq, func(ctx context.Context, step *sequence.Step) action.Result {
		return s.runAction(ctx, step.Action, step.Params, step.ID)
	})

	for _, st := range report.Steps {
		out.Steps = append(out.Steps, history.StepResult{
			StepID:    st.StepID,
			Action:    st.Action,
			Status:    st.Status,
			Exception: st.Result.Exception,
			Message:   st.Result.Message,
		})
	}
	switch report.Result.State {
	case action.StateCompleted:
		out.Status = history.StatusCompleted
	case action.StateStopped:
		out.Status = history.StatusStopped
	default:
		out.Status = history.StatusFailed
		out.ErrorKind = report.Result.Exception
		out.Message = report.Result.Message
		if report.FailedStep != "" {
			out.Message = fmt.Sprintf("step %s: %s", report.FailedStep, out.Message)
		}
	}
	if s.agent.Stopped() && out.Status == history.StatusCompleted {
		out.Status = history.StatusStopped
	}
	return e.finish(ctx, out)
}

func (e *Executer) newOutcome(script string, kind history.Kind) *Outcome {
	return &Outcome{
		RunID:     uuid.NewString(),
		Script:    script,
		Kind:      kind,
		StartedAt: time.Now(),
	}
}

func (e *Executer) finish(ctx context.Context, out *Outcome) *Outcome {
	out.EndedAt = time.Now()
	recordRun(out)

	logger := desklog.WithRunContext(e.logger, out.RunID, out.Script)
	attrs := []any{
		slog.String("status", string(out.Status)),
		desklog.Duration("duration", out.EndedAt.Sub(out.StartedAt).Milliseconds()),
	}
	if out.ErrorKind != "" {
		attrs = append(attrs, slog.String(desklog.KindKey, out.ErrorKind), slog.String("message", out.Message))
	}
	switch out.Status {
	case history.StatusCompleted, history.StatusStopped:
		logger.Info("run finished", attrs...)
	default:
		logger.Warn("run finished", attrs...)
	}

	if e.opts.History != nil {
		run := &history.Run{
			ID:           out.RunID,
			Script:       out.Script,
			Kind:         out.Kind,
			Status:       out.Status,
			ErrorKind:    out.ErrorKind,
			ErrorMessage: out.Message,
			StartedAt:    out.StartedAt,
			EndedAt:      out.EndedAt,
			Steps:        out.Steps,
		}
		// The run's own context may already be cancelled.
		if err := e.opts.History.Record(context.WithoutCancel(ctx), run); err != nil {
			logger.Error("failed to record run", desklog.Error(err))
		}
	}
	return out
}

// session is the engine, agent and live actions of one run.
type session struct {
	ex     *Executer
	vm     *goja.Runtime
	bridge *host.Bridge
	agent  *Agent
	logger *slog.Logger
	script string

	// ctx is cancelled when the run is stopped.
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	live map[*action.Instance]struct{}
}

func (e *Executer) newSession(ctx context.Context, out *Outcome) (*session, error) {
	vm := goja.New()
	agent := NewAgent()
	runCtx, cancel := context.WithCancel(ctx)
	logger := desklog.WithRunContext(e.logger, out.RunID, out.Script)

	bridgeOpts := []host.Option{
		host.WithContext(runCtx),
		host.WithGate(agent),
		host.WithLogger(logger),
	}
	if e.opts.Files != nil {
		bridgeOpts = append(bridgeOpts, host.WithFileAdapter(e.opts.Files))
	}
	if e.opts.Power != nil {
		bridgeOpts = append(bridgeOpts, host.WithPowerController(e.opts.Power))
	}

	s := &session{
		ex:     e,
		vm:     vm,
		bridge: host.New(vm, bridgeOpts...),
		agent:  agent,
		logger: logger,
		script: out.Script,
		ctx:    runCtx,
		cancel: cancel,
		live:   make(map[*action.Instance]struct{}),
	}

	err := Initialize(s.bridge, agent, e.factory, out.Script, InitOptions{
		ProcessEventsInterval: e.opts.ProcessEventsInterval,
		Console:               e.opts.Console,
		Core:                  e.opts.Core,
	})
	if err == nil {
		err = s.registerActions()
	}
	if err != nil {
		cancel()
		return nil, err
	}

	agent.Start(runCtx, vm.Interrupt)
	go func() {
		select {
		case <-agent.StopRequested():
			cancel()
		case <-runCtx.Done():
		}
	}()

	e.mu.Lock()
	e.current = agent
	e.mu.Unlock()

	logger.Info("run started")
	return s, nil
}

// close stops every live action instance and releases the agent.
func (s *session) close() {
	s.mu.Lock()
	live := make([]*action.Instance, 0, len(s.live))
	for inst := range s.live {
		live = append(live, inst)
	}
	s.mu.Unlock()

	for _, inst := range live {
		inst.Stop()
		<-inst.Done()
	}

	s.agent.Close()
	s.cancel()

	s.ex.mu.Lock()
	if s.ex.current == s.agent {
		s.ex.current = nil
	}
	s.ex.mu.Unlock()
}

// classify maps the value RunProgram returned onto out.
func (s *session) classify(err error, out *Outcome) {
	var interrupted *goja.InterruptedError
	var ex *goja.Exception
	switch {
	case err == nil && s.agent.Stopped():
		out.Status = history.StatusStopped
	case err == nil:
		out.Status = history.StatusCompleted
	case errors.As(err, &interrupted):
		out.Status = history.StatusStopped
	case errors.As(err, &ex):
		out.Status = history.StatusFailed
		out.ErrorKind, out.Message = exceptionDetails(ex)
		if frames := ex.Stack(); len(frames) > 0 {
			out.Line = frames[0].Position().Line
		}
	default:
		out.Status = history.StatusFailed
		out.ErrorKind = deskerrors.KindOf(err)
		if out.ErrorKind == "" {
			out.ErrorKind = "Error"
		}
		out.Message = err.Error()
	}
}

// exceptionDetails reads the name and message of a thrown value. Thrown
// primitives have kind "Error" and their string form as message.
func exceptionDetails(ex *goja.Exception) (kind, message string) {
	val := ex.Value()
	obj, ok := val.(*goja.Object)
	if !ok || obj == nil {
		if val == nil {
			return "Error", ex.Error()
		}
		return "Error", val.String()
	}
	kind = "Error"
	if name := obj.Get("name"); name != nil && !goja.IsUndefined(name) {
		kind = name.String()
	}
	if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
		message = msg.String()
	} else {
		message = val.String()
	}
	return kind, message
}

// RunCode evaluates code in the run's engine. It lets Code actions share
// the script's globals.
func (s *session) RunCode(_ context.Context, code string) error {
	_, err := s.vm.RunString(LowerIncludes(code))
	if err == nil {
		return nil
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("%w: %w", context.Canceled, err)
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		kind, message := exceptionDetails(ex)
		return &deskerrors.ScriptError{Kind: kind, Message: message, Cause: err}
	}
	return err
}

// runAction creates, starts and waits for one action instance. Stopping
// the run stops the instance.
func (s *session) runAction(ctx context.Context, id string, params map[string]any, stepID string) action.Result {
	inst, err := s.ex.factory.NewInstance(id, params,
		action.WithLogger(s.logger),
		action.WithObserver(s),
		action.WithScriptRunner(s),
		action.WithStepID(stepID),
	)
	if err != nil {
		return action.Result{State: action.StateFailed, Exception: action.ExceptionCodeError, Message: err.Error()}
	}

	s.mu.Lock()
	s.live[inst] = struct{}{}
	s.mu.Unlock()

	if err := inst.Start(ctx); err != nil {
		return action.Result{State: action.StateFailed, Exception: action.ExceptionCodeError, Message: err.Error()}
	}
	return inst.Wait(ctx)
}

func (s *session) ProgressUpdated(inst *action.Instance, percent int) {
	desklog.Trace(inst.Logger(), "action progress", slog.Int("percent", percent))
}

func (s *session) ProgressHidden(*action.Instance) {}

func (s *session) ExecutionEnded(inst *action.Instance, _ action.Result) {
	s.mu.Lock()
	delete(s.live, inst)
	s.mu.Unlock()
}

// registerActions defines the Actions global: list() returns the action
// ids, run(id, params) runs one to completion and throws its exception on
// failure.
func (s *session) registerActions() error {
	_, err := s.bridge.SetGlobal("Actions",
		host.Func{Name: "list", MinArgs: 0, MaxArgs: 0, Fn: func(goja.FunctionCall) (goja.Value, error) {
			defs := s.ex.factory.Definitions()
			ids := make([]any, len(defs))
			for i, def := range defs {
				ids[i] = def.ID
			}
			return s.vm.NewArray(ids...), nil
		}},
		host.Func{Name: "run", MinArgs: 1, MaxArgs: 2, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			id := call.Argument(0).String()
			if _, err := s.ex.factory.Definition(id); err != nil {
				return nil, host.Errorf(action.ExceptionInvalidParameter, "%v", err)
			}
			var params map[string]any
			if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
				if err := s.vm.ExportTo(arg, &params); err != nil {
					return nil, host.Errorf(host.KindParameterType, "action parameters must be an object")
				}
			}

			res := s.runAction(s.ctx, id, params, "")
			if res.State == action.StateFailed {
				return nil, host.Errorf(res.Exception, "%s", res.Message)
			}
			return s.vm.ToValue(res.State.String()), nil
		}},
	)
	return err
}
