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

// Package errors provides the typed errors shared across deskrun.
package errors

import (
	"fmt"
	"time"
)

// ValidationError represents invalid user input such as a malformed
// sequence file or a bad command line argument.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError represents a missing resource (script, action, pack).
type NotFoundError struct {
	// Resource is the type of resource (e.g., "script", "action", "pack")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ScriptError is an exception that escaped a running script. Kind carries
// the script-visible exception name (e.g. "CopyError", "ParameterCountError").
type ScriptError struct {
	// Kind is the exception name as seen by scripts
	Kind string

	// Message is the human-readable error message
	Message string

	// File is the script file the exception was raised in (if known)
	File string

	// Line is the 1-based line of the throw site (0 if unknown)
	Line int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	msg := e.Kind
	if msg == "" {
		msg = "Error"
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.File != "" {
		if e.Line > 0 {
			msg = fmt.Sprintf("%s (%s:%d)", msg, e.File, e.Line)
		} else {
			msg = fmt.Sprintf("%s (%s)", msg, e.File)
		}
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ScriptError) ErrorType() string {
	return "script"
}

// IsRetryable implements ErrorClassifier. Script exceptions are never retried.
func (e *ScriptError) IsRetryable() bool {
	return false
}

// IsUserVisible implements UserVisibleError.
func (e *ScriptError) IsUserVisible() bool {
	return true
}

// UserMessage implements UserVisibleError.
func (e *ScriptError) UserMessage() string {
	return e.Error()
}

// Suggestion implements UserVisibleError.
func (e *ScriptError) Suggestion() string {
	switch e.Kind {
	case "ParameterCountError":
		return "Check the number of arguments passed to the function"
	case "IncludeFileError", "LoadFileError":
		return "Paths are resolved relative to the running script's directory"
	case "DirectoryDoesntExistError":
		return "Set createDestinationDirectory to true to create missing directories"
	}
	return ""
}

// ConfigError represents a configuration problem.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "copy.poll_interval")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents an operation that exceeded its time limit.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "action", "script run")
	Operation string

	// Duration is how long the operation ran before timing out
	Duration time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}
