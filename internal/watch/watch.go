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

// Package watch reports batches of file changes under a directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	desklog "github.com/tombee/deskrun/internal/log"
)

// DefaultWindow is the quiet period a burst of events must end with
// before it is delivered.
const DefaultWindow = 200 * time.Millisecond

// DefaultPatterns match the files a script run depends on.
var DefaultPatterns = []string{"**/*.{js,ui,yaml,yml}"}

// Watcher watches a directory tree. Paths are matched relative to the root
// with doublestar patterns.
type Watcher struct {
	root     string
	patterns []string
	window   time.Duration
	logger   *slog.Logger
}

// New creates a watcher for root. Empty patterns select DefaultPatterns.
func New(root string, patterns []string, window time.Duration, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = desklog.Discard()
	}
	return &Watcher{root: abs, patterns: patterns, window: window, logger: logger}, nil
}

// Match reports whether path, absolute or relative to the root, is
// watched.
func (w *Watcher) Match(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(w.root, path)
		if err != nil || strings.HasPrefix(r, "..") {
			return false
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Run delivers each debounced batch of changed paths to onChange until ctx
// is done. onChange runs on a timer goroutine, one batch at a time.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}

	d := newDebouncer(w.window, onChange)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fsw, ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory", slog.String("path", ev.Name), desklog.Error(err))
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) || !w.Match(ev.Name) {
				continue
			}
			desklog.Trace(w.logger, "file changed", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			d.add(ev.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", desklog.Error(err))
		}
	}
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// debouncer collects paths until no event has arrived for window, then
// flushes them as one sorted batch.
type debouncer struct {
	window  time.Duration
	onFlush func([]string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool

	// flushMu serializes onFlush calls.
	flushMu sync.Mutex
}

func newDebouncer(window time.Duration, onFlush func([]string)) *debouncer {
	return &debouncer{window: window, onFlush: onFlush, pending: make(map[string]struct{})}
}

func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(paths)
	d.flushMu.Lock()
	defer d.flushMu.Unlock()
	d.onFlush(paths)
}

// stop drops pending paths and cancels the timer.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
}
