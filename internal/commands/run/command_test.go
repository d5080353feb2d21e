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

package run

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/deskrun/internal/commands/shared"
	"github.com/tombee/deskrun/internal/history"
)

// setupConfig points --config at a file that keeps history and metrics in
// dir.
func setupConfig(t *testing.T, dir string) {
	t.Helper()
	cfg := fmt.Sprintf(`log:
  level: error
engine:
  process_events_interval: 5ms
history:
  enabled: true
  path: %s
metrics:
  enabled: true
  path: %s
`, filepath.Join(dir, "history.db"), filepath.Join(dir, "metrics.prom"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	shared.SetConfigPathForTest(path)
	t.Cleanup(func() { shared.SetConfigPathForTest("") })
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()

	assert.Equal(t, "run <script>", cmd.Use)
	for _, flag := range []string{"watch", "no-history"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestRunCommand_MissingArg(t *testing.T) {
	_, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestRunCommand_Completes(t *testing.T) {
	dir := t.TempDir()
	setupConfig(t, dir)
	script := writeFile(t, dir, "hello.js", `Console.println("hello from script");`)

	out, err := execute(t, script)
	require.NoError(t, err)
	assert.Contains(t, out, "hello from script")
	assert.Contains(t, out, "completed")

	store, err := history.Open(history.Config{Path: filepath.Join(dir, "history.db")})
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(t.Context(), history.Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusCompleted, runs[0].Status)

	metrics, err := os.ReadFile(filepath.Join(dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "deskrun_runs_total")
}

func TestRunCommand_NoHistory(t *testing.T) {
	dir := t.TempDir()
	setupConfig(t, dir)
	script := writeFile(t, dir, "hello.js", `Console.println("x");`)

	_, err := execute(t, script, "--no-history")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "history.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunCommand_ExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		script string
		code   int
	}{
		{"exception", "fail.js", `throw new TypeError("bad");`, shared.ExitScriptFailed},
		{"syntax error", "broken.js", `var = ;`, shared.ExitInvalidScript},
		{"stopped", "stop.js", `Execution.stop(); Console.println("unreachable");`, shared.ExitStopped},
		{"bad sequence", "seq.yaml", "actions: [", shared.ExitInvalidScript},
		{"unknown action", "seq.yml", "actions:\n  - {id: a, action: Teleport}\n", shared.ExitInvalidScript},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			setupConfig(t, dir)
			path := writeFile(t, dir, tt.file, tt.script)

			out, err := execute(t, path)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.ExitCode(err))
			assert.NotContains(t, out, "unreachable")
		})
	}
}

func TestRunCommand_FailureMessage(t *testing.T) {
	dir := t.TempDir()
	setupConfig(t, dir)
	path := writeFile(t, dir, "fail.js", "\nthrow new RangeError(\"out of range\");")

	_, err := execute(t, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RangeError: out of range")
	assert.Contains(t, err.Error(), "fail.js:2")
}

func TestRunCommand_Sequence(t *testing.T) {
	dir := t.TempDir()
	setupConfig(t, dir)
	path := writeFile(t, dir, "seq.yaml", `name: demo
actions:
  - id: greet
    action: Code
    params: {code: 'Console.println("from sequence")'}
  - id: skipped
    action: Code
    if: 'steps.greet.status == "failed"'
    params: {code: 'Console.println("never")'}
`)

	out, err := execute(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "from sequence")
	assert.NotContains(t, out, "never")
	assert.Contains(t, out, "greet")
}

func TestRunCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	setupConfig(t, dir)
	path := writeFile(t, dir, "fail.js", `Console.println("noise"); throw new TypeError("bad");`)

	var jsonBuf bytes.Buffer
	restore := shared.SetJSONOutputForTest(&jsonBuf)
	defer restore()
	shared.SetJSONForTest(true)
	defer shared.SetJSONForTest(false)

	_, err := execute(t, path)
	require.Error(t, err)
	assert.Equal(t, shared.ExitScriptFailed, shared.ExitCode(err))
	assert.Empty(t, err.Error())

	var resp RunResponse
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "run", resp.Command)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "code", resp.Kind)
	assert.NotEmpty(t, resp.RunID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TypeError", resp.Error.Code)
	assert.Equal(t, "bad", resp.Error.Message)
	assert.NotContains(t, jsonBuf.String(), "noise")
}
