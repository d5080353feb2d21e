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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dop251/goja"

	"github.com/tombee/deskrun/internal/action"
	"github.com/tombee/deskrun/internal/host"
	"github.com/tombee/deskrun/internal/uiload"
)

// CodeInitializer is implemented by action packs that expose host objects
// to scripts.
type CodeInitializer interface {
	CodeInit(b *host.Bridge) error
}

// InitOptions tunes Initialize.
type InitOptions struct {
	ProcessEventsInterval time.Duration
	Console               *Console
	Core                  host.CoreOptions
}

// Initialize populates a fresh engine: it sets the agent's interval,
// registers the include and loadUI globals, the core host classes, the
// Execution and Console objects, then lets every action pack add its own.
func Initialize(b *host.Bridge, agent *Agent, factory *action.Factory, filename string, opts InitOptions) error {
	vm := b.VM()

	interval := opts.ProcessEventsInterval
	if interval <= 0 {
		interval = DefaultProcessEventsInterval
	}
	agent.SetProcessEventsInterval(interval)

	if err := registerLoaders(b, filename); err != nil {
		return err
	}
	if err := b.RegisterCore(opts.Core); err != nil {
		return fmt.Errorf("register core classes: %w", err)
	}
	if err := registerExecution(b, agent, filename); err != nil {
		return err
	}

	console := opts.Console
	if console == nil {
		console = NewConsole()
	}
	stdio, err := b.SetGlobal("Console", console.funcs()...)
	if err != nil {
		return fmt.Errorf("register Console: %w", err)
	}
	if err := vm.Set("Stdio", stdio); err != nil {
		return err
	}

	if factory == nil {
		return nil
	}
	for _, pack := range factory.Packs() {
		ci, ok := pack.(CodeInitializer)
		if !ok {
			continue
		}
		if err := ci.CodeInit(b); err != nil {
			return fmt.Errorf("initialize pack %s: %w", pack.ID(), err)
		}
	}
	return nil
}

func registerLoaders(b *host.Bridge, filename string) error {
	vm := b.VM()

	readInclude := func(path string) (string, string, error) {
		resolved := ResolvePath(path, filename)
		data, err := os.ReadFile(resolved)
		if err != nil {
			return "", resolved, host.Errorf(host.KindIncludeFile, "Unable to include file %s", resolved)
		}
		return LowerIncludes(string(data)), resolved, nil
	}

	// __include hands the source to a direct eval at the call site.
	if err := vm.Set(includeHelper, b.Wrap(host.Func{Name: includeHelper, MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		src, _, err := readInclude(call.Argument(0).String())
		if err != nil {
			return nil, err
		}
		return vm.ToValue(src), nil
	}})); err != nil {
		return err
	}

	// include reached through a reference cannot borrow the caller's
	// scope; it evaluates in the global scope.
	if err := vm.Set("include", b.Wrap(host.Func{Name: "include", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		src, resolved, err := readInclude(call.Argument(0).String())
		if err != nil {
			return nil, err
		}
		return vm.RunScript(resolved, src)
	}})); err != nil {
		return err
	}

	return vm.Set("loadUI", b.Wrap(host.Func{Name: "loadUI", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		resolved := ResolvePath(call.Argument(0).String(), filename)
		root, err := uiload.LoadFile(resolved)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				return nil, host.Errorf(host.KindLoadFile, "Unable to load UI file %s", resolved)
			}
			return nil, host.Errorf(host.KindLoadFile, "Unable to load UI file %s: %v", resolved, err)
		}
		return uiObject(b, root), nil
	}}))
}

// uiObject converts a loaded widget tree into script objects. Every node
// exposes className, objectName, isLayout, properties, children and
// findChild(name).
func uiObject(b *host.Bridge, root *uiload.Widget) *goja.Object {
	vm := b.VM()
	objects := make(map[*uiload.Widget]*goja.Object)

	var build func(w *uiload.Widget) *goja.Object
	build = func(w *uiload.Widget) *goja.Object {
		obj := vm.NewObject()
		objects[w] = obj
		_ = obj.Set("className", w.Class)
		_ = obj.Set("objectName", w.Name)
		_ = obj.Set("isLayout", w.Layout)
		_ = obj.Set("properties", vm.ToValue(w.Properties))

		children := make([]any, len(w.Children))
		for i, c := range w.Children {
			children[i] = build(c)
		}
		_ = obj.Set("children", vm.NewArray(children...))

		_ = b.Register(obj, host.Func{Name: "findChild", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			found := w.Find(call.Argument(0).String())
			if found == nil {
				return goja.Null(), nil
			}
			return objects[found], nil
		}})
		return obj
	}
	return build(root)
}

func registerExecution(b *host.Bridge, agent *Agent, filename string) error {
	vm := b.VM()
	ms := func(call goja.FunctionCall) time.Duration {
		return time.Duration(call.Argument(0).ToInteger()) * time.Millisecond
	}

	execution, err := b.SetGlobal("Execution",
		host.Func{Name: "pause", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			_ = agent.PauseFor(ms(call))
			return nil, nil
		}},
		host.Func{Name: "sleep", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			_ = agent.Sleep(ms(call))
			return nil, nil
		}},
		host.Func{Name: "stop", MinArgs: 0, MaxArgs: 0, Fn: func(goja.FunctionCall) (goja.Value, error) {
			agent.Stop()
			vm.Interrupt(ErrStopped)
			return nil, nil
		}},
	)
	if err != nil {
		return fmt.Errorf("register Execution: %w", err)
	}
	return execution.DefineDataProperty("filename", vm.ToValue(filename), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
}
