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

package action

import (
	"fmt"
	"strconv"
	"time"
)

// Params holds the evaluated parameters of an instance.
type Params map[string]any

// ParameterError reports a missing or malformed parameter. Executors
// usually turn it into ExceptionInvalidParameter.
type ParameterError struct {
	Name   string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("parameter %q %s", e.Name, e.Reason)
}

// String returns a required string parameter.
func (p Params) String(name string) (string, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return "", &ParameterError{Name: name, Reason: "is required"}
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", &ParameterError{Name: name, Reason: "must not be empty"}
		}
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return fmt.Sprint(t), nil
	}
}

// StringOr returns a string parameter or def when absent.
func (p Params) StringOr(name, def string) string {
	if s, err := p.String(name); err == nil {
		return s
	}
	return def
}

// Bool returns a boolean parameter or def when absent.
func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return def, &ParameterError{Name: name, Reason: "must be a boolean"}
		}
		return b, nil
	default:
		return def, &ParameterError{Name: name, Reason: "must be a boolean"}
	}
}

// Duration returns a duration parameter. Numbers are milliseconds; strings
// use time.ParseDuration syntax.
func (p Params) Duration(name string, def time.Duration) (time.Duration, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}
	var d time.Duration
	switch t := v.(type) {
	case int:
		d = time.Duration(t) * time.Millisecond
	case int64:
		d = time.Duration(t) * time.Millisecond
	case float64:
		d = time.Duration(t * float64(time.Millisecond))
	case string:
		parsed, err := time.ParseDuration(t)
		if err != nil {
			return def, &ParameterError{Name: name, Reason: "must be a duration"}
		}
		d = parsed
	default:
		return def, &ParameterError{Name: name, Reason: "must be a duration"}
	}
	if d < 0 {
		return def, &ParameterError{Name: name, Reason: "must not be negative"}
	}
	return d, nil
}

// Map returns a nested object parameter, or nil when absent.
func (p Params) Map(name string) map[string]any {
	if m, ok := p[name].(map[string]any); ok {
		return m
	}
	return nil
}
