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

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(id string, started time.Time, status Status) *Run {
	return &Run{
		ID:        id,
		Script:    "/scripts/backup.js",
		Kind:      KindCode,
		Status:    status,
		StartedAt: started,
		EndedAt:   started.Add(1500 * time.Millisecond),
	}
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "history.db"), WAL: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store { return openTestStore(t) },
		"memory": func(*testing.T) Store { return NewMemoryStore() },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

			failed := sampleRun("run-2", base.Add(time.Minute), StatusFailed)
			failed.Kind = KindSequence
			failed.ErrorKind = "UnableToReadFile"
			failed.ErrorMessage = "cannot open a.bin"
			failed.Steps = []StepResult{
				{StepID: "copy", Action: "CopyFile", Status: "failed", Exception: "UnableToReadFile", Message: "cannot open a.bin"},
				{StepID: "notify", Action: "Code", Status: "skipped"},
			}

			require.NoError(t, s.Record(ctx, sampleRun("run-1", base, StatusCompleted)))
			require.NoError(t, s.Record(ctx, failed))
			require.NoError(t, s.Record(ctx, sampleRun("run-3", base.Add(2*time.Minute), StatusStopped)))
			assert.Error(t, s.Record(ctx, sampleRun("run-1", base, StatusCompleted)))

			got, err := s.Get(ctx, "run-2")
			require.NoError(t, err)
			assert.Equal(t, KindSequence, got.Kind)
			assert.Equal(t, StatusFailed, got.Status)
			assert.Equal(t, "UnableToReadFile", got.ErrorKind)
			assert.Equal(t, 1500*time.Millisecond, got.Duration())
			assert.True(t, got.StartedAt.Equal(failed.StartedAt))
			assert.Equal(t, failed.Steps, got.Steps)

			_, err = s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			all, err := s.List(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "run-3", all[0].ID)
			assert.Equal(t, "run-1", all[2].ID)

			limited, err := s.List(ctx, Filter{Limit: 1})
			require.NoError(t, err)
			require.Len(t, limited, 1)
			assert.Equal(t, "run-3", limited[0].ID)

			onlyFailed, err := s.List(ctx, Filter{Status: StatusFailed})
			require.NoError(t, err)
			require.Len(t, onlyFailed, 1)
			assert.Equal(t, "run-2", onlyFailed[0].ID)

			none, err := s.List(ctx, Filter{Script: "/other.js"})
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), sampleRun("r", time.Now(), StatusCompleted)))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: path})
	require.NoError(t, err)
	defer s.Close()
	run, err := s.Get(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
}
