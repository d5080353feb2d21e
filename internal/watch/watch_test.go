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

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, nil, 0, nil)
	require.NoError(t, err)

	assert.True(t, w.Match(filepath.Join(root, "main.js")))
	assert.True(t, w.Match(filepath.Join(root, "lib", "form.ui")))
	assert.True(t, w.Match("seq.yaml"))
	assert.False(t, w.Match(filepath.Join(root, "notes.txt")))
	assert.False(t, w.Match(filepath.Join(filepath.Dir(root), "outside.js")))
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(t.TempDir(), []string{"[unclosed"}, 0, nil)
	assert.Error(t, err)
}

func TestDebouncer_Batches(t *testing.T) {
	var mu sync.Mutex
	var batches [][]string
	d := newDebouncer(20*time.Millisecond, func(paths []string) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, paths)
	})

	d.add("b.js")
	d.add("a.js")
	d.add("b.js")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a.js", "b.js"}, batches[0])

	d.stop()
	d.add("c.js")
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, batches, 1)
}

func TestRun_DeliversChanges(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, nil, 20*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan []string, 4)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(paths []string) { changed <- paths }) }()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.js"), []byte("1"), 0o644))

	select {
	case paths := <-changed:
		assert.Equal(t, []string{filepath.Join(root, "main.js")}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	require.NoError(t, <-done)
}
