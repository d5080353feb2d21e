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

package host

import (
	"github.com/tombee/deskrun/internal/process"
)

// CoreOptions configures RegisterCore.
type CoreOptions struct {
	Random  RandomSource
	Spawner *process.Spawner
}

// RegisterCore defines the host classes every run gets: RawData, Point,
// Size, Rect, Color, Image, ProcessHandle and Algorithms.
func (b *Bridge) RegisterCore(opts CoreOptions) error {
	if opts.Random == nil {
		opts.Random = CryptoRandomSource{}
	}
	if opts.Spawner == nil {
		opts.Spawner = process.NewSpawner()
	}

	steps := []func() error{
		b.registerRawData,
		b.registerGeometry,
		b.registerColor,
		b.registerImage,
		func() error { return b.registerProcess(opts.Spawner) },
		func() error { return b.registerAlgorithms(opts.Random) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
