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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/deskrun/internal/action"
	"github.com/tombee/deskrun/internal/action/data"
	"github.com/tombee/deskrun/internal/action/flow"
	"github.com/tombee/deskrun/internal/copyjob"
	"github.com/tombee/deskrun/internal/history"
	"github.com/tombee/deskrun/internal/host"
	"github.com/tombee/deskrun/internal/sequence"
	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

type testEnv struct {
	ex      *Executer
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	history *history.MemoryStore
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	factory := action.NewFactory()
	require.NoError(t, factory.Register(data.New(copyjob.Options{PollInterval: time.Millisecond})))
	require.NoError(t, factory.Register(flow.New()))

	console := NewConsole()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	console.Out, console.Err = out, errOut

	store := history.NewMemoryStore()
	ex := New(factory, Options{
		ProcessEventsInterval: 5 * time.Millisecond,
		Console:               console,
		History:               store,
	})
	return &testEnv{ex: ex, out: out, errOut: errOut, history: store, dir: t.TempDir()}
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *testEnv) run(t *testing.T, src string) *Outcome {
	t.Helper()
	return e.ex.RunCode(context.Background(), e.write(t, "main.js", src))
}

func TestRunCode_Completes(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, `Console.print("a", 1); Console.println(""); Stdio.println("b"); Console.println(Execution.filename.length > 0);`)

	assert.Equal(t, history.StatusCompleted, out.Status)
	assert.NoError(t, out.Err())
	assert.Equal(t, "a 1\nb\ntrue\n", env.out.String())

	run, err := env.history.Get(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, history.StatusCompleted, run.Status)
	assert.Equal(t, history.KindCode, run.Kind)
}

func TestRunCode_FilenameIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, `Execution.filename = "other"; Console.println(Execution.filename === "other");`)

	assert.Equal(t, history.StatusCompleted, out.Status)
	assert.Equal(t, "false\n", env.out.String())
}

func TestRunCode_UncaughtException(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "var e = new Error(\"boom\");\ne.name = \"CustomError\";\nthrow e;")

	assert.Equal(t, history.StatusFailed, out.Status)
	assert.Equal(t, "CustomError", out.ErrorKind)
	assert.Equal(t, "boom", out.Message)
	assert.Equal(t, 1, out.Line)

	var se *deskerrors.ScriptError
	require.ErrorAs(t, out.Err(), &se)
	assert.Equal(t, "CustomError", se.Kind)
}

func TestRunCode_ExceptionLine(t *testing.T) {
	tests := []struct {
		name string
		code string
		line int
	}{
		{"thrown where constructed", "var a = 1;\nvar b = 2;\nthrow new Error(\"late\");", 3},
		{"constructed before throw", "var e = new TypeError(\"early\");\nvar pad = 0;\nthrow e;", 1},
		{"thrown primitive", "var a = 1;\nthrow \"plain\";", 2},
		{"inside function", "function f() {\n  throw new RangeError(\"deep\");\n}\nf();", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			out := env.run(t, tt.code)

			assert.Equal(t, history.StatusFailed, out.Status)
			assert.Equal(t, tt.line, out.Line)
		})
	}
}

func TestRunCode_HostExceptionKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind string
	}{
		{"arity", `Algorithms.md5();`, host.KindParameterCount},
		{"include missing", `include("nope.js");`, host.KindIncludeFile},
		{"loadUI missing", `loadUI("nope.ui");`, host.KindLoadFile},
		{"thrown primitive", `throw 42;`, "Error"},
		{"type error", `null.x;`, "TypeError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			out := env.run(t, tt.src)
			assert.Equal(t, history.StatusFailed, out.Status)
			assert.Equal(t, tt.kind, out.ErrorKind)
		})
	}
}

func TestRunCode_CatchableHostException(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, `try { include("nope.js"); } catch (e) { Console.println(e.name); }`)

	assert.Equal(t, history.StatusCompleted, out.Status)
	assert.Equal(t, "IncludeFileError\n", env.out.String())
}

func TestRunCode_Invalid(t *testing.T) {
	env := newTestEnv(t)

	out := env.run(t, "var = ;")
	assert.Equal(t, history.StatusInvalid, out.Status)
	assert.Equal(t, "SyntaxError", out.ErrorKind)

	out = env.ex.RunCode(context.Background(), filepath.Join(env.dir, "missing.js"))
	assert.Equal(t, history.StatusInvalid, out.Status)
	assert.Equal(t, host.KindLoadFile, out.ErrorKind)
}

func TestRunCode_ExecutionStop(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, `Console.println("a"); Execution.stop(); Console.println("b");`)

	assert.Equal(t, history.StatusStopped, out.Status)
	assert.ErrorIs(t, out.Err(), ErrStopped)
	assert.Equal(t, "a\n", env.out.String())
}

func TestRunCode_ContextCancelStopsLoop(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "loop.js", `for (;;) {}`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	out := env.ex.RunCode(ctx, path)

	assert.Equal(t, history.StatusStopped, out.Status)
}

func TestRunCode_ExternalStop(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "sleep.js", `Execution.sleep(60000); Console.println("late");`)

	go func() {
		assert.Eventually(t, func() bool {
			env.ex.mu.Lock()
			defer env.ex.mu.Unlock()
			return env.ex.current != nil
		}, time.Second, time.Millisecond)
		env.ex.Stop()
	}()
	out := env.ex.RunCode(context.Background(), path)

	assert.Equal(t, history.StatusStopped, out.Status)
	assert.Empty(t, env.out.String())
}

func TestRunCode_IncludeBorrowsCallerScope(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "lib/base.js", `var base = 41; include("inner.js");`)
	env.write(t, "lib/inner.js", `var fromInner = 1;`)
	env.write(t, "bump.js", `local = local + 10;`)

	// Nested includes resolve against the running script's directory.
	env.write(t, "inner.js", `var fromInner = 1;`)
	out := env.run(t, `
include("lib/base.js");
function f() {
	var local = 1;
	include("bump.js");
	return local;
}
Console.println(base + f() + fromInner);
`)

	require.Equal(t, history.StatusCompleted, out.Status, out.Message)
	assert.Equal(t, "53\n", env.out.String())
}

func TestRunCode_LoadUI(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "form.ui", `<ui version="4.0"><widget class="QDialog" name="Dialog">
<property name="windowTitle"><string>Backup</string></property>
<layout class="QVBoxLayout" name="layout"><item><widget class="QPushButton" name="okButton"/></item></layout>
</widget></ui>`)

	out := env.run(t, `
var w = loadUI("form.ui");
Console.println(w.className, w.objectName, w.properties.windowTitle);
Console.println(w.findChild("okButton").className, w.findChild("nothing") === null);
`)

	require.Equal(t, history.StatusCompleted, out.Status, out.Message)
	assert.Equal(t, "QDialog Dialog Backup\nQPushButton true\n", env.out.String())
}

func TestRunCode_Actions(t *testing.T) {
	env := newTestEnv(t)
	src := env.write(t, "a.txt", "payload")
	dst := filepath.Join(env.dir, "b.txt")

	out := env.run(t, `
Console.println(Actions.list().indexOf("CopyFile") >= 0);
Console.println(Actions.run("CopyFile", {source: `+"`"+src+"`"+`, destination: `+"`"+dst+"`"+`}));
Actions.run("Code", {code: "shared = 5"});
Console.println(shared);
try {
	Actions.run("CopyFile", {source: "/no/such/file", destination: "x"});
} catch (e) {
	Console.println(e.name);
}
`)

	require.Equal(t, history.StatusCompleted, out.Status, out.Message)
	assert.Equal(t, "true\ncompleted\n5\nUnableToReadFile\n", env.out.String())
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestRunCode_StopTearsDownLiveActions(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "pause.js", `Actions.run("Pause", {duration: 60000});`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	begin := time.Now()
	out := env.ex.RunCode(ctx, path)

	assert.Equal(t, history.StatusStopped, out.Status)
	assert.Less(t, time.Since(begin), 10*time.Second)
}

func TestRunSequence(t *testing.T) {
	env := newTestEnv(t)
	seq, err := sequence.Parse([]byte(`
name: demo
actions:
  - id: copy
    action: CopyFile
    params: {source: /no/such/file, destination: /tmp/x}
    on_exception:
      UnableToReadFile: {do: goto, target: fallback}
  - id: never
    action: Code
    params: {code: 'Console.println("never")'}
  - id: fallback
    action: Code
    if: 'steps.copy.exception == "UnableToReadFile"'
    params: {code: 'Console.println("fallback")'}
  - id: wait
    action: Pause
    params: {duration: 1}
`))
	require.NoError(t, err)
	seq.Filename = filepath.Join(env.dir, "demo.yaml")

	out := env.ex.RunSequence(context.Background(), seq)

	require.Equal(t, history.StatusCompleted, out.Status, out.Message)
	assert.Equal(t, "fallback\n", env.out.String())

	run, err := env.history.Get(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, history.KindSequence, run.Kind)
	require.Len(t, run.Steps, 3)
	assert.Equal(t, "copy", run.Steps[0].StepID)
	assert.Equal(t, "failed", run.Steps[0].Status)
	assert.Equal(t, "UnableToReadFile", run.Steps[0].Exception)
	assert.Equal(t, "fallback", run.Steps[1].StepID)
	assert.Equal(t, "wait", run.Steps[2].StepID)
}

func TestRunSequence_FailureAndInvalid(t *testing.T) {
	env := newTestEnv(t)

	seq, err := sequence.Parse([]byte("actions:\n  - {id: boom, action: Code, params: {code: 'throw new TypeError(\"bad\")'}}\n"))
	require.NoError(t, err)
	out := env.ex.RunSequence(context.Background(), seq)
	assert.Equal(t, history.StatusFailed, out.Status)
	assert.Equal(t, action.ExceptionCodeError, out.ErrorKind)
	assert.Contains(t, out.Message, "step boom")
	assert.Contains(t, out.Message, "TypeError")

	seq, err = sequence.Parse([]byte("actions:\n  - {id: a, action: Teleport}\n"))
	require.NoError(t, err)
	out = env.ex.RunSequence(context.Background(), seq)
	assert.Equal(t, history.StatusInvalid, out.Status)
}
