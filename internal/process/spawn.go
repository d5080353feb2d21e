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

package process

import (
	"fmt"
	"os"
	"os/exec"
)

// Spawner starts detached processes.
type Spawner struct {
	// Env is the environment passed to the child process
	Env []string

	// Dir is the working directory of the child ("" for the current one)
	Dir string
}

// NewSpawner creates a spawner inheriting the current environment.
func NewSpawner() *Spawner {
	return &Spawner{Env: os.Environ()}
}

// Start spawns binary detached from the current process, with stdin,
// stdout and stderr connected to the null device, and returns its PID.
func (s *Spawner) Start(binary string, args []string) (int, error) {
	cmd := exec.Command(binary, args...)
	cmd.Env = s.Env
	cmd.Dir = s.Dir
	cmd.SysProcAttr = detach()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", binary, err)
	}
	pid := cmd.Process.Pid

	// Reap the child in the background so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}
