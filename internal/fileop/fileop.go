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

// Package fileop performs copy, move, rename and remove through the
// platform's native facility: the shell on Unix and SHFileOperationW on
// Windows. Every call produces either nil or an *Error carrying a
// script-visible kind.
package fileop

import (
	"fmt"
	"strings"
)

// Op is a file operation.
type Op string

const (
	OpCopy   Op = "copy"
	OpMove   Op = "move"
	OpRename Op = "rename"
	OpRemove Op = "remove"
)

// verb is the capitalized operation name used in messages.
func (o Op) verb() string {
	if o == "" {
		return ""
	}
	return strings.ToUpper(string(o[:1])) + string(o[1:])
}

// abortedKind returns the kind reported when the user or the caller
// cancels the operation.
func (o Op) abortedKind() Kind {
	switch o {
	case OpCopy:
		return KindCopyAborted
	case OpMove:
		return KindMoveAborted
	case OpRename:
		return KindRenameAborted
	default:
		return KindRemoveAborted
	}
}

// Kind is the script-visible name of a failure.
type Kind string

const (
	KindDirectoryCreation    Kind = "DirectoryCreationError"
	KindDirectoryDoesntExist Kind = "DirectoryDoesntExistError"
	KindCopy                 Kind = "CopyError"
	KindMove                 Kind = "MoveError"
	KindMoveRename           Kind = "MoveRenameError"
	KindRename               Kind = "RenameError"
	KindRemove               Kind = "RemoveError"
	KindCopyAborted          Kind = "CopyAbortedError"
	KindMoveAborted          Kind = "MoveAbortedError"
	KindRenameAborted        Kind = "RenameAbortedError"
	KindRemoveAborted        Kind = "RemoveAbortedError"
)

// Options is the option bag accepted by every operation.
type Options struct {
	NoErrorDialog              bool
	NoConfirmDialog            bool
	NoProgressDialog           bool
	AllowUndo                  bool
	CreateDestinationDirectory bool
}

// DefaultOptions returns the defaults applied to absent keys.
func DefaultOptions() Options {
	return Options{CreateDestinationDirectory: true}
}

// ParseOptions builds Options from a sparse key/value bag. Absent keys keep
// their default and unknown keys are ignored.
func ParseOptions(values map[string]any) Options {
	opts := DefaultOptions()
	for key, value := range values {
		switch key {
		case "noErrorDialog":
			opts.NoErrorDialog = truthy(value)
		case "noConfirmDialog":
			opts.NoConfirmDialog = truthy(value)
		case "noProgressDialog":
			opts.NoProgressDialog = truthy(value)
		case "allowUndo":
			opts.AllowUndo = truthy(value)
		case "createDestinationDirectory":
			opts.CreateDestinationDirectory = truthy(value)
		}
	}
	return opts
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// Request is a single operation to perform. Destination is ignored for
// OpRemove.
type Request struct {
	Op          Op
	Source      string
	Destination string
	Options     Options
}

// Error is a failed operation outcome.
type Error struct {
	Op Op

	// ErrorType is the script-visible kind.
	ErrorType Kind

	// Message is the human-readable, platform-derived text.
	Message string

	// Code is the native error code (errno, exit status or Win32 code), 0
	// when the failure was detected before calling into the platform.
	Code int

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Kind returns the script-visible exception name.
func (e *Error) Kind() string {
	return string(e.ErrorType)
}

// Aborted reports whether the operation was cancelled rather than failed.
func (e *Error) Aborted() bool {
	return strings.HasSuffix(string(e.ErrorType), "AbortedError")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

func failed(op Op, kind Kind, code int, detail string, cause error) *Error {
	msg := fmt.Sprintf("%s failed", op.verb())
	if detail != "" {
		msg += ": " + detail
	}
	return &Error{Op: op, ErrorType: kind, Message: msg, Code: code, Cause: cause}
}

func aborted(op Op, cause error) *Error {
	return failed(op, op.abortedKind(), 0, "aborted", cause)
}
