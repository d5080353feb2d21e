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
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestShellAdapter_Copy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "with space.txt")
	writeFile(t, src, "hello")

	a := New()
	dst := filepath.Join(dir, "out dir") + "/"
	require.NoError(t, a.Copy(context.Background(), src, dst, DefaultOptions()))

	data, err := os.ReadFile(filepath.Join(dir, "out dir", "with space.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.FileExists(t, src)
}

func TestShellAdapter_CopyMissingDirectoryNoCreate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	writeFile(t, src, "x")

	dst := filepath.Join(dir, "nope", "a.txt")
	err := New().Copy(context.Background(), src, dst, Options{})

	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindDirectoryDoesntExist, opErr.ErrorType)
	assert.NoDirExists(t, filepath.Join(dir, "nope"))
	assert.FileExists(t, src)
}

func TestShellAdapter_CopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := New().Copy(context.Background(), filepath.Join(dir, "ghost"), dir+"/", DefaultOptions())

	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindCopy, opErr.ErrorType)
	assert.Equal(t, "Copy failed: File not found", opErr.Message)
	assert.Equal(t, int(syscall.ENOENT), opErr.Code)
}

func TestShellAdapter_CopyGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "in", "a.log"), "a")
	writeFile(t, filepath.Join(dir, "in", "b.log"), "b")
	writeFile(t, filepath.Join(dir, "in", "c.txt"), "c")

	out := filepath.Join(dir, "out") + "/"
	require.NoError(t, New().Copy(context.Background(), filepath.Join(dir, "in", "*.log"), out, DefaultOptions()))

	assert.FileExists(t, filepath.Join(dir, "out", "a.log"))
	assert.FileExists(t, filepath.Join(dir, "out", "b.log"))
	assert.NoFileExists(t, filepath.Join(dir, "out", "c.txt"))
}

func TestShellAdapter_MoveAndRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	writeFile(t, src, "x")

	a := New()
	renamed := filepath.Join(dir, "b.txt")
	require.NoError(t, a.Rename(context.Background(), src, renamed, DefaultOptions()))
	assert.NoFileExists(t, src)
	assert.FileExists(t, renamed)

	moved := filepath.Join(dir, "sub", "c.txt")
	require.NoError(t, a.Move(context.Background(), renamed, moved, DefaultOptions()))
	assert.NoFileExists(t, renamed)
	assert.FileExists(t, moved)

	err := a.Move(context.Background(), renamed, moved, DefaultOptions())
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindMoveRename, opErr.ErrorType)
}

func TestShellAdapter_Remove(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "tree")
	writeFile(t, filepath.Join(target, "deep", "f.txt"), "x")

	a := New()
	require.NoError(t, a.Remove(context.Background(), target, DefaultOptions()))
	assert.NoDirExists(t, target)

	// rm -f semantics
	require.NoError(t, a.Remove(context.Background(), target, DefaultOptions()))
}

func TestShellAdapter_Cancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	writeFile(t, src, "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Copy(ctx, src, dir+"/copy.txt", DefaultOptions())
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.True(t, opErr.Aborted())
	assert.Equal(t, KindCopyAborted, opErr.ErrorType)
}

func TestErrorString(t *testing.T) {
	tests := map[syscall.Errno]string{
		syscall.ENOENT:  "File not found",
		syscall.ENOTDIR: "Path not found",
		syscall.EACCES:  "Access denied",
		syscall.EPERM:   "Access denied",
		syscall.EBUSY:   "This file is used by another process",
		syscall.ENOSPC:  "The disk is full",
		syscall.EEXIST:  "The file already exists",
		syscall.EINVAL:  "Invalid name",
	}
	for code, want := range tests {
		assert.Equal(t, want, ErrorString(int(code)), "errno %d", code)
	}
	assert.Equal(t, "Unknown error (9999)", ErrorString(9999))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "missing")))
}
