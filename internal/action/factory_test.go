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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

type staticPack struct {
	id   string
	defs []*Definition
}

func (p staticPack) ID() string                 { return p.id }
func (p staticPack) Name() string               { return p.id }
func (p staticPack) Definitions() []*Definition { return p.defs }

func TestFactory(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.Register(staticPack{id: "data", defs: []*Definition{{ID: "CopyFile"}, {ID: "ReadFile"}}}))
	require.NoError(t, f.Register(staticPack{id: "system", defs: []*Definition{{ID: "System"}}}))

	def, err := f.Definition("CopyFile")
	require.NoError(t, err)
	assert.Equal(t, "data", def.Pack)

	_, err = f.Definition("Teleport")
	var nf *deskerrors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Teleport", nf.ID)

	ids := []string{}
	for _, d := range f.Definitions() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"CopyFile", "ReadFile", "System"}, ids)
	assert.Len(t, f.Packs(), 2)

	assert.Error(t, f.Register(staticPack{id: "data"}))
	assert.Error(t, f.Register(staticPack{id: "other", defs: []*Definition{{ID: "System"}}}))

	inst, err := f.NewInstance("System", nil)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, inst.State())
}

func TestParams(t *testing.T) {
	p := Params{
		"path":    "/tmp/a",
		"empty":   "",
		"num":     42,
		"force":   true,
		"flag":    "false",
		"wait":    250,
		"timeout": "2s",
		"bad":     []int{1},
		"opts":    map[string]any{"allowUndo": true},
	}

	s, err := p.String("path")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a", s)

	_, err = p.String("missing")
	var pe *ParameterError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "missing", pe.Name)

	_, err = p.String("empty")
	assert.Error(t, err)

	s, err = p.String("num")
	require.NoError(t, err)
	assert.Equal(t, "42", s)
	assert.Equal(t, "dflt", p.StringOr("missing", "dflt"))

	b, err := p.Bool("force", false)
	require.NoError(t, err)
	assert.True(t, b)
	b, err = p.Bool("flag", true)
	require.NoError(t, err)
	assert.False(t, b)
	b, err = p.Bool("missing", true)
	require.NoError(t, err)
	assert.True(t, b)
	_, err = p.Bool("bad", false)
	assert.Error(t, err)

	d, err := p.Duration("wait", 0)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
	d, err = p.Duration("timeout", 0)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
	_, err = p.Duration("path", 0)
	assert.Error(t, err)

	assert.Equal(t, true, p.Map("opts")["allowUndo"])
	assert.Nil(t, p.Map("path"))
}
