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

// Package copyjob runs a device-to-device copy on a worker goroutine while
// reporting progress on a fixed poll interval.
//
// All callbacks are delivered from a single monitor goroutine, in order:
// zero or more OnProgress calls, then OnHide, then OnDone exactly once.
package copyjob

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is passed to OnDone when the job was cancelled with Stop.
var ErrStopped = errors.New("copy stopped")

// OpenError is returned by Start when a device cannot be opened.
type OpenError struct {
	// Output is true when the output device failed, false for the input.
	Output bool
	Err    error
}

func (e *OpenError) Error() string {
	side := "input"
	if e.Output {
		side = "output"
	}
	return fmt.Sprintf("open %s: %v", side, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// IOError is passed to OnDone when the worker fails to read or write.
type IOError struct {
	// Output is true for write failures.
	Output bool
	Err    error
}

func (e *IOError) Error() string {
	if e.Output {
		return fmt.Sprintf("write: %v", e.Err)
	}
	return fmt.Sprintf("read: %v", e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Default tuning values.
const (
	DefaultPollInterval = 50 * time.Millisecond
	DefaultBufferSize   = 64 * 1024
)

// Callbacks receive job events. Any of them may be nil.
type Callbacks struct {
	// OnProgress receives the truncated percentage 0..100.
	OnProgress func(percent int)

	// OnHide is the terminal signal that progress display should close.
	OnHide func()

	// OnDone receives nil on success, ErrStopped on cancellation, or the
	// worker's read/write error.
	OnDone func(err error)
}

// Options tunes a job.
type Options struct {
	PollInterval time.Duration
	BufferSize   int
}

const (
	stateRunning int32 = iota
	stateCompleting
	stateStopping
)

// Job is a running copy.
type Job struct {
	input  Device
	output Device
	total  int64
	cb     Callbacks

	copied    atomic.Int64
	cancelled atomic.Bool
	state     atomic.Int32

	ticker      *time.Ticker
	stopCh      chan struct{}
	workerDone  chan struct{}
	monitorDone chan struct{}
	workerErr   error

	teardownOnce sync.Once
	closeErr     error
}

// Start opens input read-only and output write-only and begins copying.
// If either open fails, whatever was opened is closed again and no job
// is scheduled.
func Start(input, output Device, totalSize int64, opts Options, cb Callbacks) (*Job, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	if err := input.Open(ReadOnly); err != nil {
		return nil, &OpenError{Err: err}
	}
	if err := output.Open(WriteOnly); err != nil {
		input.Close()
		return nil, &OpenError{Output: true, Err: err}
	}

	j := &Job{
		input:       input,
		output:      output,
		total:       totalSize,
		cb:          cb,
		ticker:      time.NewTicker(opts.PollInterval),
		stopCh:      make(chan struct{}),
		workerDone:  make(chan struct{}),
		monitorDone: make(chan struct{}),
	}

	go j.work(opts.BufferSize)
	go j.monitor()

	return j, nil
}

// Copied returns the number of bytes written so far.
func (j *Job) Copied() int64 {
	return j.copied.Load()
}

// Percent returns the current progress.
func (j *Job) Percent() int {
	return Percent(j.copied.Load(), j.total)
}

// Percent computes copied*100/total with integer truncation, clamped to
// 100. A non-positive total yields 0.
func Percent(copied, total int64) int {
	if total <= 0 {
		return 0
	}
	p := copied * 100 / total
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return int(p)
}

// Stop cancels the job. It halts the poll, signals and joins the worker and
// closes both devices. Calling Stop more than once, or after the job has
// completed, has no further effect. OnHide and OnDone(ErrStopped) follow
// asynchronously; use Wait to block until they have been delivered.
func (j *Job) Stop() {
	j.state.CompareAndSwap(stateRunning, stateStopping)
	j.teardown()
}

// Wait blocks until OnDone has returned.
func (j *Job) Wait() {
	<-j.monitorDone
}

// CloseError returns the first error from closing the devices, if any.
// Only meaningful after Wait.
func (j *Job) CloseError() error {
	return j.closeErr
}

func (j *Job) teardown() {
	j.teardownOnce.Do(func() {
		j.ticker.Stop()
		j.cancelled.Store(true)
		close(j.stopCh)
		<-j.workerDone

		inErr := j.input.Close()
		outErr := j.output.Close()
		j.closeErr = errors.Join(inErr, outErr)
	})
}

func (j *Job) work(bufSize int) {
	defer close(j.workerDone)

	buf := make([]byte, bufSize)
	for !j.cancelled.Load() {
		n, rerr := j.input.Read(buf)
		if n > 0 {
			written, werr := j.output.Write(buf[:n])
			j.copied.Add(int64(written))
			if werr != nil {
				j.workerErr = &IOError{Output: true, Err: werr}
				return
			}
		}
		if rerr == io.EOF {
			return
		}
		if rerr != nil {
			j.workerErr = &IOError{Err: rerr}
			return
		}
	}
}

func (j *Job) monitor() {
	defer close(j.monitorDone)

	for {
		select {
		case <-j.ticker.C:
			// A tick can stay buffered after Stop tore the job down.
			if j.cancelled.Load() {
				continue
			}
			j.progress(j.Percent())
		case <-j.workerDone:
			j.state.CompareAndSwap(stateRunning, stateCompleting)
			j.finish()
			return
		case <-j.stopCh:
			j.finish()
			return
		}
	}
}

func (j *Job) finish() {
	j.teardown()

	if j.state.Load() == stateStopping {
		j.hide()
		j.done(ErrStopped)
		return
	}

	j.progress(j.Percent())
	j.hide()
	if j.workerErr == nil {
		bytesCopied.Add(float64(j.copied.Load()))
	}
	j.done(j.workerErr)
}

func (j *Job) progress(p int) {
	if j.cb.OnProgress != nil {
		j.cb.OnProgress(p)
	}
}

func (j *Job) hide() {
	if j.cb.OnHide != nil {
		j.cb.OnHide()
	}
}

func (j *Job) done(err error) {
	if j.cb.OnDone != nil {
		j.cb.OnDone(err)
	}
}
