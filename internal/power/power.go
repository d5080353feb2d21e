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

// Package power performs session and power management operations: logout,
// restart, shutdown, suspend, hibernate, locking the screen and starting
// the screen saver.
package power

import (
	"context"
	"fmt"
	"strings"
)

// Operation is a power or session operation.
type Operation int

const (
	Logout Operation = iota
	Restart
	Shutdown
	Suspend
	Hibernate
	LockScreen
	StartScreenSaver
)

var operationNames = map[Operation]string{
	Logout:           "logout",
	Restart:          "restart",
	Shutdown:         "shutdown",
	Suspend:          "suspend",
	Hibernate:        "hibernate",
	LockScreen:       "lockScreen",
	StartScreenSaver: "startScreenSaver",
}

// String implements fmt.Stringer.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// Operations returns every operation in declaration order.
func Operations() []Operation {
	return []Operation{Logout, Restart, Shutdown, Suspend, Hibernate, LockScreen, StartScreenSaver}
}

// ParseOperation parses an operation name case-insensitively.
func ParseOperation(s string) (Operation, error) {
	for op, name := range operationNames {
		if strings.EqualFold(name, s) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown power operation %q", s)
}

// KindNotAvailable is the exception kind for operations the platform
// cannot perform.
const KindNotAvailable = "NotAvailable"

// NotAvailableError reports an operation the platform cannot perform.
type NotAvailableError struct {
	Op     Operation
	Reason string
	Cause  error
}

func (e *NotAvailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is not available", e.Op)
	}
	return fmt.Sprintf("%s is not available: %s", e.Op, e.Reason)
}

// Kind returns KindNotAvailable.
func (e *NotAvailableError) Kind() string { return KindNotAvailable }

func (e *NotAvailableError) Unwrap() error { return e.Cause }

// Controller performs power operations. force skips confirmation and
// does not wait for applications to close where the platform supports it.
type Controller interface {
	Do(ctx context.Context, op Operation, force bool) error
}
