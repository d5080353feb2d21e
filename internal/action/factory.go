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
	"sort"
	"sync"

	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

// Factory is the registry of action packs and their definitions.
type Factory struct {
	mu    sync.RWMutex
	packs []Pack
	defs  map[string]*Definition
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{defs: make(map[string]*Definition)}
}

// Register adds a pack. Definition ids must be unique across packs.
func (f *Factory) Register(p Pack) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.packs {
		if existing.ID() == p.ID() {
			return fmt.Errorf("action pack %q already registered", p.ID())
		}
	}
	for _, def := range p.Definitions() {
		if _, dup := f.defs[def.ID]; dup {
			return fmt.Errorf("action %q from pack %q already registered", def.ID, p.ID())
		}
	}

	for _, def := range p.Definitions() {
		def.Pack = p.ID()
		f.defs[def.ID] = def
	}
	f.packs = append(f.packs, p)
	return nil
}

// Packs returns the registered packs in registration order.
func (f *Factory) Packs() []Pack {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Pack, len(f.packs))
	copy(out, f.packs)
	return out
}

// Definition looks up a definition by id.
func (f *Factory) Definition(id string) (*Definition, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	def, ok := f.defs[id]
	if !ok {
		return nil, &deskerrors.NotFoundError{Resource: "action", ID: id}
	}
	return def, nil
}

// Definitions returns every definition sorted by id.
func (f *Factory) Definitions() []*Definition {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*Definition, 0, len(f.defs))
	for _, def := range f.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// NewInstance creates an idle instance of the action id.
func (f *Factory) NewInstance(id string, params map[string]any, opts ...Option) (*Instance, error) {
	def, err := f.Definition(id)
	if err != nil {
		return nil, err
	}
	return NewInstance(def, params, opts...), nil
}
