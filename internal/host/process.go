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

package host

import (
	"errors"
	"time"

	"github.com/dop251/goja"

	"github.com/tombee/deskrun/internal/process"
)

// killTimeout is how long kill waits for the process to go away.
const killTimeout = 5 * time.Second

// ProcessHandle is the native side of a script ProcessHandle.
type ProcessHandle struct {
	PID int
}

func (b *Bridge) processMethod(name string, min, max int, fn func(call goja.FunctionCall, p *ProcessHandle) (goja.Value, error)) Func {
	return Func{Name: name, MinArgs: min, MaxArgs: max, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		p, err := self[*ProcessHandle](b, call, "ProcessHandle")
		if err != nil {
			return nil, err
		}
		return fn(call, p)
	}}
}

func (b *Bridge) registerProcess(spawner *process.Spawner) error {
	_, err := b.DefineClass(Class{
		Name:    "ProcessHandle",
		MinArgs: 0,
		MaxArgs: 1,
		New: func(call goja.ConstructorCall) (any, error) {
			p := &ProcessHandle{}
			if len(call.Arguments) == 1 {
				if other, ok := Native[*ProcessHandle](b, call.Arguments[0]); ok {
					p.PID = other.PID
				} else {
					p.PID = int(call.Arguments[0].ToInteger())
				}
			}
			return p, nil
		},
		Methods: []Func{
			b.processMethod("id", 0, 0, func(_ goja.FunctionCall, p *ProcessHandle) (goja.Value, error) {
				return b.vm.ToValue(p.PID), nil
			}),
			b.processMethod("isRunning", 0, 0, func(_ goja.FunctionCall, p *ProcessHandle) (goja.Value, error) {
				return b.vm.ToValue(process.IsRunning(p.PID)), nil
			}),
			b.processMethod("command", 0, 0, func(_ goja.FunctionCall, p *ProcessHandle) (goja.Value, error) {
				cmd, err := process.Command(p.PID)
				if err != nil {
					return nil, Errorf(KindProcess, "Unable to read the command of process %d: %v", p.PID, err)
				}
				return b.vm.ToValue(cmd), nil
			}),
			b.processMethod("kill", 0, 1, func(call goja.FunctionCall, p *ProcessHandle) (goja.Value, error) {
				err := process.Kill(p.PID, argBool(call, 0, false), killTimeout)
				if err != nil && !errors.Is(err, process.ErrExitTimeout) {
					return nil, Errorf(KindProcess, "Unable to kill process %d: %v", p.PID, err)
				}
				return call.This, nil
			}),
		},
		Statics: []Func{
			{Name: "start", MinArgs: 1, MaxArgs: 2, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				var args []string
				if present(call.Argument(1)) {
					if err := b.vm.ExportTo(call.Argument(1), &args); err != nil {
						return nil, Errorf(KindParameterType, "arguments must be an array of strings")
					}
				}
				pid, err := spawner.Start(argString(call, 0), args)
				if err != nil {
					return nil, Errorf(KindProcess, "Unable to start process: %v", err)
				}
				return b.Instantiate("ProcessHandle", &ProcessHandle{PID: pid}), nil
			}},
		},
	})
	return err
}
