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

//go:build windows

package fileop

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	shell32              = windows.NewLazySystemDLL("shell32.dll")
	procSHFileOperationW = shell32.NewProc("SHFileOperationW")
)

// SHFileOperation functions and flags from shellapi.h.
const (
	foMove   = 0x0001
	foCopy   = 0x0002
	foDelete = 0x0003
	foRename = 0x0004

	fofSilent         = 0x0004
	fofNoConfirmation = 0x0010
	fofAllowUndo      = 0x0040
	fofNoConfirmMkdir = 0x0200
	fofNoErrorUI      = 0x0400
)

// shFileOpStruct mirrors SHFILEOPSTRUCTW.
type shFileOpStruct struct {
	hwnd                  uintptr
	wFunc                 uint32
	pFrom                 *uint16
	pTo                   *uint16
	fFlags                uint16
	fAnyOperationsAborted int32
	hNameMappings         uintptr
	lpszProgressTitle     *uint16
}

// ShellAdapter drives the Windows shell file operation API.
type ShellAdapter struct{}

var _ Adapter = (*ShellAdapter)(nil)

// New returns the adapter for the current platform.
func New() Adapter {
	return &ShellAdapter{}
}

// Copy performs FO_COPY.
func (a *ShellAdapter) Copy(ctx context.Context, source, destination string, opts Options) error {
	return a.transfer(ctx, foCopy, OpCopy, KindCopy, source, destination, opts)
}

// Move performs FO_MOVE.
func (a *ShellAdapter) Move(ctx context.Context, source, destination string, opts Options) error {
	return a.transfer(ctx, foMove, OpMove, KindMove, source, destination, opts)
}

// Rename performs FO_RENAME.
func (a *ShellAdapter) Rename(ctx context.Context, source, destination string, opts Options) error {
	return a.transfer(ctx, foRename, OpRename, KindRename, source, destination, opts)
}

// Remove performs FO_DELETE.
func (a *ShellAdapter) Remove(ctx context.Context, path string, opts Options) error {
	if ctx.Err() != nil {
		return aborted(OpRemove, ctx.Err())
	}
	return call(foDelete, OpRemove, KindRemove, path, "", opts)
}

func (a *ShellAdapter) transfer(ctx context.Context, fn uint32, op Op, kind Kind, source, destination string, opts Options) error {
	mkdir := func(dir string) error {
		return os.MkdirAll(dir, 0o755)
	}
	if err := ensureDestination(op, destination, opts, mkdir); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return aborted(op, ctx.Err())
	}
	return call(fn, op, kind, source, destination, opts)
}

// nativeFlags maps the option bag onto FOF_* bits.
func nativeFlags(opts Options) uint16 {
	var flags uint16
	if opts.NoErrorDialog {
		flags |= fofNoErrorUI
	}
	if opts.NoConfirmDialog {
		flags |= fofNoConfirmation | fofNoConfirmMkdir
	}
	if opts.NoProgressDialog {
		flags |= fofSilent
	}
	if opts.AllowUndo {
		flags |= fofAllowUndo
	}
	return flags
}

func call(fn uint32, op Op, kind Kind, source, destination string, opts Options) error {
	from, err := pathList(source)
	if err != nil {
		return failed(op, kind, int(windows.ERROR_INVALID_NAME), ErrorString(int(windows.ERROR_INVALID_NAME)), err)
	}

	s := shFileOpStruct{
		wFunc:  fn,
		pFrom:  from,
		fFlags: nativeFlags(opts),
	}
	if destination != "" {
		to, err := pathList(destination)
		if err != nil {
			return failed(op, kind, int(windows.ERROR_INVALID_NAME), ErrorString(int(windows.ERROR_INVALID_NAME)), err)
		}
		s.pTo = to
	}

	r, _, _ := procSHFileOperationW.Call(uintptr(unsafe.Pointer(&s)))
	if r != 0 {
		return failed(op, kind, int(r), ErrorString(int(r)), syscall.Errno(r))
	}
	if s.fAnyOperationsAborted != 0 {
		return aborted(op, nil)
	}
	return nil
}

// pathList encodes an absolute path as the double-NUL terminated UTF-16
// list SHFileOperationW expects.
func pathList(path string) (*uint16, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	u, err := windows.UTF16FromString(abs)
	if err != nil {
		return nil, err
	}
	u = append(u, 0)
	return &u[0], nil
}
