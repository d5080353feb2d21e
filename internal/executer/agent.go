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
	"sync"
	"sync/atomic"
	"time"
)

// DefaultProcessEventsInterval is how often a running script yields to
// service stop requests.
const DefaultProcessEventsInterval = 50 * time.Millisecond

// ErrStopped is reported by the agent once a stop was requested.
var ErrStopped = errors.New("execution stopped")

// Agent supervises one script run. Its ticker delivers stop requests to
// the engine and its pause gate is checked at every host call.
type Agent struct {
	interval time.Duration

	stopped  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}

	interrupt func(reason any)
	closeCh   chan struct{}
	closeOnce sync.Once
	loopDone  chan struct{}
}

// NewAgent creates an agent with the default interval.
func NewAgent() *Agent {
	return &Agent{
		interval: DefaultProcessEventsInterval,
		stopCh:   make(chan struct{}),
	}
}

// SetProcessEventsInterval changes the tick interval. Must be called
// before Start.
func (a *Agent) SetProcessEventsInterval(d time.Duration) {
	if d > 0 {
		a.interval = d
	}
}

// ProcessEventsInterval returns the tick interval.
func (a *Agent) ProcessEventsInterval() time.Duration {
	return a.interval
}

// Start begins ticking. interrupt is called from the ticker goroutine once
// the run is stopped or ctx is done; it must be safe for concurrent use.
func (a *Agent) Start(ctx context.Context, interrupt func(reason any)) {
	a.interrupt = interrupt
	a.closeCh = make(chan struct{})
	a.loopDone = make(chan struct{})
	go a.loop(ctx)
}

func (a *Agent) loop(ctx context.Context) {
	defer close(a.loopDone)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.stopped.Load() {
				a.interrupt(ErrStopped)
				return
			}
		case <-ctx.Done():
			a.Stop()
			a.interrupt(ErrStopped)
			return
		case <-a.closeCh:
			return
		}
	}
}

// Close ends the ticker and waits for it.
func (a *Agent) Close() {
	if a.closeCh == nil {
		return
	}
	a.closeOnce.Do(func() { close(a.closeCh) })
	<-a.loopDone
}

// Stop requests the run to stop. The engine is interrupted on the next
// tick; blocking host calls return immediately. Idempotent.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		a.stopped.Store(true)
		close(a.stopCh)
	})
}

// Stopped reports whether a stop was requested.
func (a *Agent) Stopped() bool {
	return a.stopped.Load()
}

// StopRequested is closed once Stop is called.
func (a *Agent) StopRequested() <-chan struct{} {
	return a.stopCh
}

// Pause suspends the run at its next host call.
func (a *Agent) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.paused {
		a.paused = true
		a.resumeCh = make(chan struct{})
	}
}

// Resume lets a paused run continue.
func (a *Agent) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.paused {
		a.paused = false
		close(a.resumeCh)
	}
}

// Paused reports whether the run is paused.
func (a *Agent) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// Checkpoint blocks while the run is paused. It returns ErrStopped once a
// stop was requested.
func (a *Agent) Checkpoint() error {
	a.mu.Lock()
	paused, resume := a.paused, a.resumeCh
	a.mu.Unlock()

	if paused {
		select {
		case <-resume:
		case <-a.stopCh:
		}
	}
	if a.stopped.Load() {
		return ErrStopped
	}
	return nil
}

// Sleep waits for d or until the run is stopped.
func (a *Agent) Sleep(d time.Duration) error {
	if d <= 0 {
		return a.Checkpoint()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-a.stopCh:
		return ErrStopped
	}
}

// PauseFor pauses the run for d. Resume ends the pause early.
func (a *Agent) PauseFor(d time.Duration) error {
	a.Pause()
	a.mu.Lock()
	resume := a.resumeCh
	a.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		a.Resume()
		return nil
	case <-resume:
		return nil
	case <-a.stopCh:
		a.Resume()
		return ErrStopped
	}
}
