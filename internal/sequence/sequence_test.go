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

package sequence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/deskrun/internal/action"
	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

type testPack struct{}

func (testPack) ID() string   { return "test" }
func (testPack) Name() string { return "Test" }
func (testPack) Definitions() []*action.Definition {
	return []*action.Definition{
		{ID: "CopyFile", Exceptions: []string{"UnableToReadFile", "UnableToWriteFile"}},
		{ID: "Code"},
	}
}

func testCatalog(t *testing.T) Catalog {
	t.Helper()
	f := action.NewFactory()
	require.NoError(t, f.Register(testPack{}))
	return f
}

const backupYAML = `
name: backup
actions:
  - id: copy
    action: CopyFile
    params: {source: ./a.bin, destination: /tmp/a.bin}
    on_exception:
      UnableToReadFile: {do: goto, target: fallback}
      UnableToWriteFile: skip
  - id: done
    action: Code
    if: 'steps.copy.status == "completed"'
    params: {code: 'Console.println("copied")'}
  - id: fallback
    action: Code
    if: 'steps.copy.status == "failed"'
    params: {code: 'Console.println("fallback")'}
`

func TestParse(t *testing.T) {
	seq, err := Parse([]byte(backupYAML))
	require.NoError(t, err)
	assert.Equal(t, "backup", seq.Name)
	require.Len(t, seq.Actions, 3)

	copyStep := seq.Actions[0]
	assert.Equal(t, "./a.bin", copyStep.Params["source"])
	assert.Equal(t, Handler{Do: DoGoto, Target: "fallback"}, copyStep.OnException["UnableToReadFile"])
	assert.Equal(t, Handler{Do: DoSkip}, copyStep.OnException["UnableToWriteFile"])
	require.NoError(t, seq.Validate(testCatalog(t)))
}

func TestParse_DefaultsStepIDs(t *testing.T) {
	seq, err := Parse([]byte("actions:\n  - action: Code\n  - action: Code\n    on_exception:\n      '*': {}\n"))
	require.NoError(t, err)
	assert.Equal(t, "step-1", seq.Actions[0].ID)
	assert.Equal(t, "step-2", seq.Actions[1].ID)
	assert.Equal(t, DoStop, seq.Actions[1].OnException[AnyException].Do)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"empty", "name: x\n", "actions"},
		{"duplicate ids", "actions:\n  - {id: a, action: Code}\n  - {id: a, action: Code}\n", "actions.id"},
		{"missing action", "actions:\n  - {id: a}\n", "actions.a.action"},
		{"unknown action", "actions:\n  - {id: a, action: Teleport}\n", "actions.a.action"},
		{"bad condition", "actions:\n  - {id: a, action: Code, if: 'steps.('}\n", "actions.a.if"},
		{"undeclared exception", "actions:\n  - id: a\n    action: Code\n    on_exception: {UnableToReadFile: skip}\n", "actions.a.on_exception"},
		{"missing goto target", "actions:\n  - id: a\n    action: CopyFile\n    on_exception: {UnableToReadFile: {do: goto, target: nowhere}}\n", "actions.a.on_exception"},
		{"unknown handler", "actions:\n  - id: a\n    action: CopyFile\n    on_exception: {UnableToReadFile: retry}\n", "actions.a.on_exception"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			err = seq.Validate(testCatalog(t))
			var ve *deskerrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

// scripted returns a StepFunc that replays results per step id and
// records the order steps ran in.
func scripted(results map[string][]action.Result, order *[]string) StepFunc {
	return func(_ context.Context, step *Step) action.Result {
		*order = append(*order, step.ID)
		queue := results[step.ID]
		if len(queue) == 0 {
			return action.Result{State: action.StateCompleted}
		}
		res := queue[0]
		results[step.ID] = queue[1:]
		return res
	}
}

func failed(exception string) action.Result {
	return action.Result{State: action.StateFailed, Exception: exception, Message: exception + " happened"}
}

func TestRun_CompletedTakesConditionBranch(t *testing.T) {
	seq, err := Parse([]byte(backupYAML))
	require.NoError(t, err)

	var order []string
	report := NewRunner(nil).Run(context.Background(), seq, scripted(nil, &order))

	assert.Equal(t, action.StateCompleted, report.Result.State)
	assert.Equal(t, []string{"copy", "done"}, order)
	require.Len(t, report.Steps, 3)
	assert.Equal(t, StatusSkipped, report.Steps[2].Status)
}

func TestRun_GotoOnException(t *testing.T) {
	seq, err := Parse([]byte(backupYAML))
	require.NoError(t, err)

	var order []string
	results := map[string][]action.Result{"copy": {failed("UnableToReadFile")}}
	report := NewRunner(nil).Run(context.Background(), seq, scripted(results, &order))

	assert.Equal(t, action.StateCompleted, report.Result.State)
	assert.Equal(t, []string{"copy", "fallback"}, order)
}

func TestRun_SkipOnException(t *testing.T) {
	seq, err := Parse([]byte(backupYAML))
	require.NoError(t, err)

	var order []string
	results := map[string][]action.Result{"copy": {failed("UnableToWriteFile")}}
	report := NewRunner(nil).Run(context.Background(), seq, scripted(results, &order))

	assert.Equal(t, action.StateCompleted, report.Result.State)
	// done is skipped by its condition, fallback runs because copy failed.
	assert.Equal(t, []string{"copy", "fallback"}, order)
}

func TestRun_UnhandledExceptionStops(t *testing.T) {
	seq, err := Parse([]byte(backupYAML))
	require.NoError(t, err)

	var order []string
	results := map[string][]action.Result{"copy": {failed(action.ExceptionTimeout)}}
	report := NewRunner(nil).Run(context.Background(), seq, scripted(results, &order))

	assert.Equal(t, action.StateFailed, report.Result.State)
	assert.Equal(t, action.ExceptionTimeout, report.Result.Exception)
	assert.Equal(t, "copy", report.FailedStep)
	assert.Equal(t, []string{"copy"}, order)
}

func TestRun_WildcardHandler(t *testing.T) {
	seq, err := Parse([]byte("actions:\n  - id: a\n    action: Code\n    on_exception: {'*': skip}\n  - {id: b, action: Code}\n"))
	require.NoError(t, err)
	require.NoError(t, seq.Validate(testCatalog(t)))

	var order []string
	results := map[string][]action.Result{"a": {failed(action.ExceptionCodeError)}}
	report := NewRunner(nil).Run(context.Background(), seq, scripted(results, &order))

	assert.Equal(t, action.StateCompleted, report.Result.State)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestRun_GotoCycleHitsStepLimit(t *testing.T) {
	seq, err := Parse([]byte("actions:\n  - id: a\n    action: CopyFile\n    on_exception: {UnableToReadFile: {do: goto, target: a}}\n"))
	require.NoError(t, err)

	runner := NewRunner(nil)
	runner.MaxSteps = 5
	var order []string
	always := func(ctx context.Context, step *Step) action.Result {
		order = append(order, step.ID)
		return failed("UnableToReadFile")
	}
	report := runner.Run(context.Background(), seq, always)

	assert.Equal(t, action.StateFailed, report.Result.State)
	assert.Contains(t, report.Result.Message, "step limit")
	assert.Len(t, order, 5)
}

func TestRun_StoppedStep(t *testing.T) {
	seq, err := Parse([]byte("actions:\n  - {id: a, action: Code}\n  - {id: b, action: Code}\n"))
	require.NoError(t, err)

	var order []string
	results := map[string][]action.Result{"a": {{State: action.StateStopped}}}
	report := NewRunner(nil).Run(context.Background(), seq, scripted(results, &order))

	assert.Equal(t, action.StateStopped, report.Result.State)
	assert.Equal(t, []string{"a"}, order)
}

func TestRun_CancelledContext(t *testing.T) {
	seq, err := Parse([]byte("actions:\n  - {id: a, action: Code}\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var order []string
	report := NewRunner(nil).Run(ctx, seq, scripted(nil, &order))

	assert.Equal(t, action.StateStopped, report.Result.State)
	assert.Empty(t, order)
}

func TestConditions(t *testing.T) {
	c := NewConditions()
	env := map[string]any{"steps": map[string]any{"a": map[string]any{"status": "failed"}}}

	ok, err := c.Eval(`steps.a.status == "failed"`, env)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Eval("", env)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Error(t, c.Check("steps.("))
}

func TestIsSequenceFile(t *testing.T) {
	assert.True(t, IsSequenceFile("a.yaml"))
	assert.True(t, IsSequenceFile("B.YML"))
	assert.False(t, IsSequenceFile("a.js"))
}
