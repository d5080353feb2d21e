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

package sequence

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Conditions compiles and caches step `if` expressions.
type Conditions struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewConditions creates an empty cache.
func NewConditions() *Conditions {
	return &Conditions{cache: make(map[string]*vm.Program)}
}

// Check compiles expression without running it.
func (c *Conditions) Check(expression string) error {
	_, err := c.compile(expression)
	return err
}

// Eval runs expression against env. An empty expression is true.
func (c *Conditions) Eval(expression string, env map[string]any) (bool, error) {
	if expression == "" {
		return true, nil
	}
	program, err := c.compile(expression)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", expression, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q must return a boolean, got %T", expression, out)
	}
	return b, nil
}

func (c *Conditions) compile(expression string) (*vm.Program, error) {
	c.mu.RLock()
	if prog, ok := c.cache[expression]; ok {
		c.mu.RUnlock()
		return prog, nil
	}
	c.mu.RUnlock()

	prog, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", expression, err)
	}

	c.mu.Lock()
	c.cache[expression] = prog
	c.mu.Unlock()
	return prog, nil
}
