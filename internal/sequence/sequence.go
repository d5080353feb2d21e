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

// Package sequence loads and runs YAML action sequences.
package sequence

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/deskrun/internal/action"
	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

// Handler actions for on_exception.
const (
	DoStop = "stop"
	DoSkip = "skip"
	DoGoto = "goto"
)

// AnyException is the on_exception key matching every exception.
const AnyException = "*"

// Sequence is an ordered list of action steps.
type Sequence struct {
	Name    string `yaml:"name"`
	Actions []Step `yaml:"actions"`

	// Filename is the file the sequence was loaded from.
	Filename string `yaml:"-"`
}

// Step runs one action.
type Step struct {
	ID     string         `yaml:"id"`
	Action string         `yaml:"action"`
	If     string         `yaml:"if,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`

	// OnException maps exception names to handlers. The key "*" matches
	// any exception. Exceptions without an entry stop the sequence.
	OnException map[string]Handler `yaml:"on_exception,omitempty"`
}

// Handler decides what happens after a step raised an exception.
type Handler struct {
	Do     string `yaml:"do"`
	Target string `yaml:"target,omitempty"`
}

// UnmarshalYAML accepts either the short form `skip` or a mapping.
func (h *Handler) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		h.Do = node.Value
		return nil
	}
	type plain Handler
	return node.Decode((*plain)(h))
}

// Catalog resolves action ids. *action.Factory satisfies it.
type Catalog interface {
	Definition(id string) (*action.Definition, error)
}

// Load reads and parses a sequence file.
func Load(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence: %w", err)
	}
	seq, err := Parse(data)
	if err != nil {
		return nil, err
	}
	seq.Filename = path
	return seq, nil
}

// Parse decodes a sequence and fills in defaults. It does not check
// action ids; see Validate.
func Parse(data []byte) (*Sequence, error) {
	var seq Sequence
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("failed to parse sequence: %w", err)
	}
	seq.applyDefaults()
	return &seq, nil
}

func (s *Sequence) applyDefaults() {
	for i := range s.Actions {
		step := &s.Actions[i]
		if step.ID == "" {
			step.ID = fmt.Sprintf("step-%d", i+1)
		}
		for name, h := range step.OnException {
			if h.Do == "" {
				h.Do = DoStop
				step.OnException[name] = h
			}
		}
	}
}

// IsSequenceFile reports whether path names a YAML sequence.
func IsSequenceFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

// Validate checks step ids, action ids, exception names, handler targets
// and conditions.
func (s *Sequence) Validate(catalog Catalog) error {
	if len(s.Actions) == 0 {
		return &deskerrors.ValidationError{Field: "actions", Message: "sequence has no actions"}
	}

	index := s.index()
	if len(index) != len(s.Actions) {
		seen := make(map[string]bool)
		for _, step := range s.Actions {
			if seen[step.ID] {
				return &deskerrors.ValidationError{Field: "actions.id", Message: fmt.Sprintf("duplicate step id %q", step.ID)}
			}
			seen[step.ID] = true
		}
	}

	cond := NewConditions()
	for _, step := range s.Actions {
		field := "actions." + step.ID
		if step.Action == "" {
			return &deskerrors.ValidationError{Field: field + ".action", Message: "action is required"}
		}
		def, err := catalog.Definition(step.Action)
		if err != nil {
			return &deskerrors.ValidationError{Field: field + ".action", Message: err.Error(), Suggestion: "run 'deskrun actions' to list available actions"}
		}
		if step.If != "" {
			if err := cond.Check(step.If); err != nil {
				return &deskerrors.ValidationError{Field: field + ".if", Message: err.Error()}
			}
		}
		for exception, h := range step.OnException {
			if exception != AnyException && !def.Declares(exception) {
				return &deskerrors.ValidationError{
					Field:      field + ".on_exception",
					Message:    fmt.Sprintf("action %s does not raise %s", def.ID, exception),
					Suggestion: "declared exceptions: " + strings.Join(def.AllExceptions(), ", "),
				}
			}
			switch h.Do {
			case DoStop, DoSkip:
			case DoGoto:
				if _, ok := index[h.Target]; !ok {
					return &deskerrors.ValidationError{Field: field + ".on_exception", Message: fmt.Sprintf("goto target %q does not exist", h.Target)}
				}
			default:
				return &deskerrors.ValidationError{Field: field + ".on_exception", Message: fmt.Sprintf("unknown handler %q", h.Do)}
			}
		}
	}
	return nil
}

func (s *Sequence) index() map[string]int {
	out := make(map[string]int, len(s.Actions))
	for i, step := range s.Actions {
		out[step.ID] = i
	}
	return out
}
