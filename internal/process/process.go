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

// Package process inspects, signals and starts operating system
// processes on behalf of scripts.
package process

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotRunning is returned when the process does not exist.
	ErrNotRunning = errors.New("process not running")

	// ErrExitTimeout is returned when the process doesn't exit within the timeout.
	ErrExitTimeout = errors.New("process did not exit in time")
)

// Info contains information about a process.
type Info struct {
	PID     int
	Running bool
	Command string
}

// Lookup returns information about the process with the given PID.
func Lookup(pid int) Info {
	info := Info{PID: pid, Running: IsRunning(pid)}
	if info.Running {
		cmd, err := commandLine(pid)
		if err != nil {
			info.Command = "<unknown>"
		} else {
			info.Command = cmd
		}
	}
	return info
}

// Command returns the command line of a running process.
func Command(pid int) (string, error) {
	if !IsRunning(pid) {
		return "", ErrNotRunning
	}
	return commandLine(pid)
}

// WaitForExit polls until the process is gone or timeout elapses.
func WaitForExit(pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	interval := 50 * time.Millisecond

	for time.Now().Before(deadline) {
		if !IsRunning(pid) {
			return nil
		}
		time.Sleep(interval)
	}
	return ErrExitTimeout
}

// Kill ends a process. Without force the process is asked to terminate and
// given timeout to exit; with force it is killed immediately.
func Kill(pid int, force bool, timeout time.Duration) error {
	if !IsRunning(pid) {
		return ErrNotRunning
	}
	if force {
		if err := kill(pid); err != nil {
			return fmt.Errorf("failed to kill process %d: %w", pid, err)
		}
		return WaitForExit(pid, timeout)
	}
	if err := terminate(pid); err != nil {
		return fmt.Errorf("failed to terminate process %d: %w", pid, err)
	}
	return WaitForExit(pid, timeout)
}
