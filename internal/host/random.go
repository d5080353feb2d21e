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
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"sync"
)

// RandomSource provides random integers to scripts.
type RandomSource interface {
	// Int returns a random integer in [min, max] (inclusive).
	Int(min, max int64) (int64, error)
}

// CryptoRandomSource draws from crypto/rand.
type CryptoRandomSource struct{}

// Int implements RandomSource.
func (CryptoRandomSource) Int(min, max int64) (int64, error) {
	if min > max {
		return 0, Errorf(KindParameterType, "min must be <= max")
	}
	if min == max {
		return min, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, Errorf(KindInternal, "failed to generate random number: %v", err)
	}
	return min + n.Int64(), nil
}

// SeededRandomSource is a deterministic source for reproducible runs.
type SeededRandomSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededRandomSource creates a deterministic source.
func NewSeededRandomSource(seed int64) *SeededRandomSource {
	return &SeededRandomSource{rng: mrand.New(mrand.NewSource(seed))}
}

// Int implements RandomSource.
func (s *SeededRandomSource) Int(min, max int64) (int64, error) {
	if min > max {
		return 0, Errorf(KindParameterType, "min must be <= max")
	}
	if min == max {
		return min, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.rng.Int63n(max-min+1), nil
}
