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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgent_StopInterrupts(t *testing.T) {
	a := NewAgent()
	a.SetProcessEventsInterval(time.Millisecond)

	interrupted := make(chan any, 1)
	a.Start(context.Background(), func(reason any) { interrupted <- reason })
	defer a.Close()

	assert.False(t, a.Stopped())
	a.Stop()
	a.Stop()

	select {
	case reason := <-interrupted:
		assert.Equal(t, ErrStopped, reason)
	case <-time.After(time.Second):
		t.Fatal("agent did not interrupt")
	}
	assert.True(t, a.Stopped())
	assert.ErrorIs(t, a.Checkpoint(), ErrStopped)
}

func TestAgent_ContextCancelStops(t *testing.T) {
	a := NewAgent()
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	a.Start(ctx, func(any) { calls.Add(1) })
	cancel()

	select {
	case <-a.StopRequested():
	case <-time.After(time.Second):
		t.Fatal("cancel did not stop the agent")
	}
	a.Close()
	assert.Equal(t, int32(1), calls.Load())
}

func TestAgent_CloseDoesNotStop(t *testing.T) {
	a := NewAgent()
	a.Start(context.Background(), func(any) { t.Error("unexpected interrupt") })
	a.Close()
	a.Close()
	assert.False(t, a.Stopped())
}

func TestAgent_PauseGate(t *testing.T) {
	a := NewAgent()
	a.Pause()
	assert.True(t, a.Paused())

	passed := make(chan error, 1)
	go func() { passed <- a.Checkpoint() }()

	select {
	case <-passed:
		t.Fatal("checkpoint passed while paused")
	case <-time.After(20 * time.Millisecond):
	}

	a.Resume()
	require.NoError(t, <-passed)
	assert.False(t, a.Paused())
}

func TestAgent_SleepStopsEarly(t *testing.T) {
	a := NewAgent()
	go func() {
		time.Sleep(10 * time.Millisecond)
		a.Stop()
	}()
	begin := time.Now()
	assert.ErrorIs(t, a.Sleep(time.Minute), ErrStopped)
	assert.Less(t, time.Since(begin), 5*time.Second)
	assert.NoError(t, NewAgent().Sleep(time.Millisecond))
}

func TestAgent_PauseFor(t *testing.T) {
	a := NewAgent()
	require.NoError(t, a.PauseFor(5*time.Millisecond))
	assert.False(t, a.Paused())

	done := make(chan error, 1)
	go func() { done <- a.PauseFor(time.Minute) }()
	require.Eventually(t, a.Paused, time.Second, time.Millisecond)
	a.Resume()
	require.NoError(t, <-done)
}
