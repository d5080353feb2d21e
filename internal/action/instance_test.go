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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor lets a test drive an instance by hand.
type fakeExecutor struct {
	startErr  error
	onStart   func(inst *Instance)
	stopCalls int
	mu        sync.Mutex
}

func (f *fakeExecutor) StartExecution(_ context.Context, inst *Instance) error {
	if f.onStart != nil {
		f.onStart(inst)
	}
	return f.startErr
}

func (f *fakeExecutor) StopExecution() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
}

type recordingObserver struct {
	mu       sync.Mutex
	progress []int
	hidden   int
	ended    []Result
}

func (r *recordingObserver) ProgressUpdated(_ *Instance, p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingObserver) ProgressHidden(*Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden++
}

func (r *recordingObserver) ExecutionEnded(_ *Instance, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, res)
}

func newTestInstance(exec *fakeExecutor, obs Observer) *Instance {
	def := &Definition{
		ID:         "Test",
		Exceptions: []string{"UnableToReadFile"},
		New:        func() Executor { return exec },
	}
	return NewInstance(def, map[string]any{"source": "a"}, WithObserver(obs))
}

func TestState(t *testing.T) {
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateStopped.Terminal())
	assert.Equal(t, "running", StateRunning.String())
}

func TestInstance_Complete(t *testing.T) {
	exec := &fakeExecutor{}
	obs := &recordingObserver{}
	inst := newTestInstance(exec, obs)

	cleaned := 0
	inst.AddCleanup(func() { cleaned++ })

	require.NoError(t, inst.Start(context.Background()))
	assert.Equal(t, StateRunning, inst.State())

	inst.SetProgress(40)
	inst.HideProgress()
	inst.Complete()

	<-inst.Done()
	assert.Equal(t, StateCompleted, inst.State())
	assert.Equal(t, Result{State: StateCompleted}, inst.Result())
	assert.Equal(t, 1, cleaned)
	assert.Equal(t, []int{40}, obs.progress)
	assert.Equal(t, 1, obs.hidden)
	require.Len(t, obs.ended, 1)

	// Terminal transitions after the first are ignored.
	inst.Fail("UnableToReadFile", "late")
	inst.Stop()
	inst.Complete()
	assert.Equal(t, StateCompleted, inst.State())
	assert.Equal(t, 1, cleaned)
	assert.Len(t, obs.ended, 1)
	assert.Equal(t, 0, exec.stopCalls)
}

func TestInstance_FailDeclaredException(t *testing.T) {
	inst := newTestInstance(&fakeExecutor{}, nil)
	require.NoError(t, inst.Start(context.Background()))

	inst.Fail("UnableToReadFile", "cannot open a")
	res := inst.Wait(context.Background())

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, "UnableToReadFile", res.Exception)
	assert.Equal(t, "cannot open a", res.Message)
}

func TestInstance_FailUndeclaredException(t *testing.T) {
	inst := newTestInstance(&fakeExecutor{}, nil)
	require.NoError(t, inst.Start(context.Background()))

	inst.Fail("Bogus", "boom")
	res := inst.Result()

	assert.Equal(t, ExceptionCodeError, res.Exception)
	assert.Equal(t, "Bogus: boom", res.Message)
}

func TestInstance_StartErrorFails(t *testing.T) {
	inst := newTestInstance(&fakeExecutor{startErr: errors.New("bad input")}, nil)
	require.NoError(t, inst.Start(context.Background()))

	res := inst.Result()
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ExceptionCodeError, res.Exception)
}

func TestInstance_SynchronousCompletion(t *testing.T) {
	exec := &fakeExecutor{onStart: func(inst *Instance) { inst.Complete() }}
	inst := newTestInstance(exec, nil)

	require.NoError(t, inst.Start(context.Background()))
	assert.Equal(t, StateCompleted, inst.State())
}

func TestInstance_Stop(t *testing.T) {
	exec := &fakeExecutor{}
	obs := &recordingObserver{}
	inst := newTestInstance(exec, obs)

	var ctxDone bool
	exec.onStart = func(inst *Instance) {
		inst.AddCleanup(func() {})
	}
	cleaned := 0
	inst.AddCleanup(func() { cleaned++ })

	require.NoError(t, inst.Start(context.Background()))
	inst.Stop()
	inst.Stop()

	select {
	case <-inst.Done():
		ctxDone = true
	case <-time.After(time.Second):
	}
	assert.True(t, ctxDone)
	assert.Equal(t, StateStopped, inst.State())
	assert.Equal(t, 1, exec.stopCalls)
	assert.Equal(t, 1, cleaned)
	require.Len(t, obs.ended, 1)
	assert.Equal(t, StateStopped, obs.ended[0].State)

	// Progress after termination is dropped.
	inst.SetProgress(90)
	assert.Empty(t, obs.progress)
}

func TestInstance_AddCleanupAfterEnd(t *testing.T) {
	exec := &fakeExecutor{}
	inst := newTestInstance(exec, nil)
	require.NoError(t, inst.Start(context.Background()))
	inst.Stop()
	<-inst.Done()

	cleaned := 0
	inst.AddCleanup(func() { cleaned++ })
	assert.Equal(t, 1, cleaned)

	inst.Stop()
	assert.Equal(t, 1, cleaned)
}

func TestInstance_StopIdle(t *testing.T) {
	exec := &fakeExecutor{}
	inst := newTestInstance(exec, nil)

	inst.Stop()
	assert.Equal(t, StateStopped, inst.State())
	assert.Equal(t, 0, exec.stopCalls)
	assert.Error(t, inst.Start(context.Background()))
}

func TestInstance_ConcurrentTermination(t *testing.T) {
	for n := 0; n < 50; n++ {
		exec := &fakeExecutor{}
		obs := &recordingObserver{}
		inst := newTestInstance(exec, obs)
		cleaned := 0
		var mu sync.Mutex
		inst.AddCleanup(func() {
			mu.Lock()
			cleaned++
			mu.Unlock()
		})
		require.NoError(t, inst.Start(context.Background()))

		var wg sync.WaitGroup
		wg.Add(3)
		go func() { defer wg.Done(); inst.Complete() }()
		go func() { defer wg.Done(); inst.Stop() }()
		go func() { defer wg.Done(); inst.Fail("UnableToReadFile", "x") }()
		wg.Wait()

		assert.Equal(t, 1, cleaned)
		assert.Len(t, obs.ended, 1)
		assert.True(t, inst.State().Terminal())
	}
}

func TestInstance_WaitContextCancelStops(t *testing.T) {
	exec := &fakeExecutor{}
	inst := newTestInstance(exec, nil)
	require.NoError(t, inst.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	res := inst.Wait(ctx)
	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, 1, exec.stopCalls)
}

func TestDefinition_Declares(t *testing.T) {
	def := &Definition{ID: "X", Exceptions: []string{"NotAvailable"}}

	assert.True(t, def.Declares(ExceptionCodeError))
	assert.True(t, def.Declares(ExceptionTimeout))
	assert.True(t, def.Declares("NotAvailable"))
	assert.False(t, def.Declares("Other"))
	assert.Equal(t, []string{ExceptionCodeError, ExceptionInvalidParameter, ExceptionTimeout, "NotAvailable"}, def.AllExceptions())
}
