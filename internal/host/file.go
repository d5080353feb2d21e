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

package host

import (
	"io"
	"os"

	"github.com/dop251/goja"

	"github.com/tombee/deskrun/internal/fileop"
)

// File open modes, bit-compatible with the values scripts pass.
const (
	ReadOnly   = 0x01
	WriteOnly  = 0x02
	ReadWrite  = ReadOnly | WriteOnly
	Append     = 0x04
	Truncate   = 0x08
	Text       = 0x10
	Unbuffered = 0x20
)

// FileHandle is the native side of a script File object.
type FileHandle struct {
	path string
	file *os.File
}

func openFlags(mode int) (int, bool) {
	if mode&(ReadWrite|Append) == 0 {
		return 0, false
	}
	var flags int
	switch {
	case mode&ReadWrite == ReadWrite:
		flags = os.O_RDWR | os.O_CREATE
	case mode&(WriteOnly|Append) != 0:
		flags = os.O_WRONLY | os.O_CREATE
	default:
		flags = os.O_RDONLY
	}
	if mode&Append != 0 {
		flags |= os.O_APPEND
	}
	// Write-only without append replaces the file content.
	if mode&Truncate != 0 || mode&(ReadOnly|Append) == 0 {
		flags |= os.O_TRUNC
	}
	return flags, true
}

func (h *FileHandle) close() {
	if h.file != nil {
		_ = h.file.Close()
		h.file = nil
	}
}

// fileOp funnels every script file operation into the adapter.
func (b *Bridge) fileOp(op fileop.Op, source, destination string, opts goja.Value) error {
	return fileop.Do(b.ctx, b.files, fileop.Request{
		Op:          op,
		Source:      source,
		Destination: destination,
		Options:     fileop.ParseOptions(optionsOf(opts)),
	})
}

func (b *Bridge) staticTransfer(name string, op fileop.Op) Func {
	return Func{Name: name, MinArgs: 2, MaxArgs: 3, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		return nil, b.fileOp(op, argString(call, 0), argString(call, 1), call.Argument(2))
	}}
}

func (b *Bridge) methodTransfer(name string, op fileop.Op, closeFirst bool) Func {
	return Func{Name: name, MinArgs: 1, MaxArgs: 2, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		h, err := self[*FileHandle](b, call, "File")
		if err != nil {
			return nil, err
		}
		if closeFirst {
			h.close()
		}
		if err := b.fileOp(op, h.path, argString(call, 0), call.Argument(1)); err != nil {
			return nil, err
		}
		return call.This, nil
	}}
}

func (b *Bridge) writeBytes(call goja.FunctionCall, data []byte) (goja.Value, error) {
	h, err := self[*FileHandle](b, call, "File")
	if err != nil {
		return nil, err
	}
	if h.file == nil {
		return nil, Errorf(KindWriteFailed, "Write failed: file is not open")
	}
	if _, err := h.file.Write(data); err != nil {
		return nil, Errorf(KindWriteFailed, "Write failed: %v", err)
	}
	return call.This, nil
}

func (b *Bridge) readAll(call goja.FunctionCall) ([]byte, error) {
	h, err := self[*FileHandle](b, call, "File")
	if err != nil {
		return nil, err
	}
	if h.file == nil {
		return nil, Errorf(KindReadFailed, "Read failed: file is not open")
	}
	data, err := io.ReadAll(h.file)
	if err != nil {
		return nil, Errorf(KindReadFailed, "Read failed: %v", err)
	}
	return data, nil
}

// RegisterFile defines the File class.
func (b *Bridge) RegisterFile() error {
	ctor, err := b.DefineClass(Class{
		Name:    "File",
		MinArgs: 0,
		MaxArgs: 0,
		New: func(goja.ConstructorCall) (any, error) {
			return &FileHandle{}, nil
		},
		Methods: []Func{
			{Name: "open", MinArgs: 2, MaxArgs: 2, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				h, err := self[*FileHandle](b, call, "File")
				if err != nil {
					return nil, err
				}
				filename := argString(call, 0)
				flags, ok := openFlags(argInt(call, 1, 0))
				if !ok {
					return nil, Errorf(KindCannotOpenFile, "Unable to open %s: invalid open mode", filename)
				}
				h.close()
				f, err := os.OpenFile(filename, flags, 0o644)
				if err != nil {
					return nil, Errorf(KindCannotOpenFile, "Unable to open %s: %v", filename, err)
				}
				h.path = filename
				h.file = f
				return call.This, nil
			}},
			{Name: "write", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				data, ok := b.bytesOf(call.Argument(0))
				if !ok {
					return nil, Errorf(KindParameterType, "write expects a string or RawData")
				}
				return b.writeBytes(call, data)
			}},
			{Name: "writeText", MinArgs: 1, MaxArgs: 2, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				data, err := Encoding(argInt(call, 1, int(EncodingNative))).Encode(argString(call, 0))
				if err != nil {
					return nil, Errorf(KindWriteFailed, "Write failed: %v", err)
				}
				return b.writeBytes(call, data)
			}},
			{Name: "read", MinArgs: 0, MaxArgs: 0, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				data, err := b.readAll(call)
				if err != nil {
					return nil, err
				}
				return b.NewRawData(data), nil
			}},
			{Name: "readText", MinArgs: 0, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				data, err := b.readAll(call)
				if err != nil {
					return nil, err
				}
				text, err := Encoding(argInt(call, 0, int(EncodingNative))).Decode(data)
				if err != nil {
					return nil, Errorf(KindReadFailed, "Read failed: %v", err)
				}
				return b.vm.ToValue(text), nil
			}},
			{Name: "close", MinArgs: 0, MaxArgs: 0, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				h, err := self[*FileHandle](b, call, "File")
				if err != nil {
					return nil, err
				}
				h.close()
				return call.This, nil
			}},
			b.methodTransfer("copy", fileop.OpCopy, false),
			b.methodTransfer("move", fileop.OpMove, true),
			b.methodTransfer("rename", fileop.OpRename, false),
			{Name: "remove", MinArgs: 0, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				h, err := self[*FileHandle](b, call, "File")
				if err != nil {
					return nil, err
				}
				h.close()
				if err := b.fileOp(fileop.OpRemove, h.path, "", call.Argument(0)); err != nil {
					return nil, err
				}
				return call.This, nil
			}},
		},
		Statics: []Func{
			b.staticTransfer("copy", fileop.OpCopy),
			b.staticTransfer("move", fileop.OpMove),
			b.staticTransfer("rename", fileop.OpRename),
			{Name: "remove", MinArgs: 1, MaxArgs: 2, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				return nil, b.fileOp(fileop.OpRemove, argString(call, 0), "", call.Argument(1))
			}},
			{Name: "exists", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				return b.vm.ToValue(fileop.Exists(argString(call, 0))), nil
			}},
		},
	})
	if err != nil {
		return err
	}

	if err := ctor.Set("OpenMode", enumObject(b.vm, map[string]int{
		"ReadOnly":   ReadOnly,
		"WriteOnly":  WriteOnly,
		"ReadWrite":  ReadWrite,
		"Append":     Append,
		"Truncate":   Truncate,
		"Text":       Text,
		"Unbuffered": Unbuffered,
	})); err != nil {
		return err
	}
	return ctor.Set("Encoding", enumObject(b.vm, encodingNames))
}
