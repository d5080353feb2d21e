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

//go:build !windows

package fileop

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"al.essio.dev/pkg/shellescape"
	"github.com/bmatcuk/doublestar/v4"
)

// ShellAdapter runs cp, mv, rm and mkdir through sh -c. The dialog flags
// in Options have no meaning here and are ignored.
type ShellAdapter struct {
	// Shell is the interpreter used for -c. Defaults to "sh".
	Shell string
}

var _ Adapter = (*ShellAdapter)(nil)

// New returns the adapter for the current platform.
func New() Adapter {
	return &ShellAdapter{Shell: "sh"}
}

// Copy runs cp -fr.
func (a *ShellAdapter) Copy(ctx context.Context, source, destination string, opts Options) error {
	return a.transfer(ctx, OpCopy, KindCopy, "cp -fr", source, destination, opts)
}

// Move runs mv -f.
func (a *ShellAdapter) Move(ctx context.Context, source, destination string, opts Options) error {
	return a.transfer(ctx, OpMove, KindMoveRename, "mv -f", source, destination, opts)
}

// Rename is a move on Unix and reports the same kind.
func (a *ShellAdapter) Rename(ctx context.Context, source, destination string, opts Options) error {
	return a.transfer(ctx, OpRename, KindMoveRename, "mv -f", source, destination, opts)
}

// Remove runs rm -fr. A missing path is not an error.
func (a *ShellAdapter) Remove(ctx context.Context, path string, opts Options) error {
	return a.run(ctx, OpRemove, KindRemove, "rm -fr", expandSources(path)...)
}

func (a *ShellAdapter) transfer(ctx context.Context, op Op, kind Kind, command, source, destination string, opts Options) error {
	mkdir := func(dir string) error {
		return a.run(ctx, op, KindDirectoryCreation, "mkdir -p", dir)
	}
	if err := ensureDestination(op, destination, opts, mkdir); err != nil {
		return err
	}

	sources := expandSources(source)
	for _, src := range sources {
		if _, err := os.Lstat(src); err != nil {
			code := errnoOf(err)
			return failed(op, kind, code, ErrorString(code), err)
		}
	}

	args := append(sources, destination)
	return a.run(ctx, op, kind, command, args...)
}

// run executes command with every argument shell-quoted.
func (a *ShellAdapter) run(ctx context.Context, op Op, kind Kind, command string, args ...string) error {
	var line strings.Builder
	line.WriteString(command)
	for _, arg := range args {
		line.WriteByte(' ')
		line.WriteString(shellescape.Quote(arg))
	}

	shell := a.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", line.String())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return aborted(op, ctx.Err())
	}

	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return failed(op, kind, code, strings.TrimSpace(stderr.String()), err)
}

// expandSources resolves glob patterns the way an unquoted shell word
// would. A pattern without matches is kept literally.
func expandSources(pattern string) []string {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil || len(matches) == 0 {
		return []string{pattern}
	}
	return matches
}

func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return -1
}
