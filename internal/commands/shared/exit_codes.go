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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

// Exit codes of deskrun commands.
const (
	ExitSuccess       = 0
	ExitScriptFailed  = 1
	ExitInvalidScript = 2
	ExitStopped       = 3
)

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewScriptFailedError reports a run that ended with an exception.
func NewScriptFailedError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitScriptFailed, Message: msg, Cause: cause}
}

// NewInvalidScriptError reports a script or sequence that could not be
// loaded.
func NewInvalidScriptError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidScript, Message: msg, Cause: cause}
}

// NewStoppedError reports a run that was stopped before it finished.
func NewStoppedError(msg string) *ExitError {
	return &ExitError{Code: ExitStopped, Message: msg}
}

// ExitCode returns the exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitScriptFailed
}

// HandleExitError prints err and exits with its code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	code := PrintError(os.Stderr, err)
	os.Exit(code)
}

// PrintError writes err and any suggestion to w and returns the exit code.
// An ExitError without a message prints nothing.
func PrintError(w io.Writer, err error) int {
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, RenderError(msg))
	}
	printUserVisibleSuggestion(w, err)
	return ExitCode(err)
}

func printUserVisibleSuggestion(w io.Writer, err error) {
	for err != nil {
		if userErr, ok := err.(deskerrors.UserVisibleError); ok {
			if userErr.IsUserVisible() {
				if suggestion := userErr.Suggestion(); suggestion != "" {
					fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
				}
			}
			return
		}
		err = errors.Unwrap(err)
	}
}
