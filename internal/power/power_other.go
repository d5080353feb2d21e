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

//go:build !linux && !windows

package power

import "context"

type unsupported struct{}

// New returns the controller for this platform.
func New() Controller {
	return unsupported{}
}

func (unsupported) Do(_ context.Context, op Operation, _ bool) error {
	return &NotAvailableError{Op: op, Reason: "no power management backend on this platform"}
}
