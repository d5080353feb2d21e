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
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/dop251/goja"
	"github.com/google/uuid"
)

const defaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxRandomString bounds randomString so a script typo cannot exhaust memory.
const maxRandomString = 1 << 20

func (b *Bridge) digest(name string, newHash func() hash.Hash) Func {
	return Func{Name: name, MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		data, ok := b.bytesOf(call.Argument(0))
		if !ok {
			return nil, Errorf(KindParameterType, "%s expects a string or RawData", name)
		}
		h := newHash()
		h.Write(data)
		return b.vm.ToValue(hex.EncodeToString(h.Sum(nil))), nil
	}}
}

func (b *Bridge) registerAlgorithms(random RandomSource) error {
	_, err := b.SetGlobal("Algorithms",
		b.digest("md5", md5.New),
		b.digest("sha1", sha1.New),
		b.digest("sha256", sha256.New),
		Func{Name: "randomInt", MinArgs: 2, MaxArgs: 2, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			n, err := random.Int(call.Argument(0).ToInteger(), call.Argument(1).ToInteger())
			if err != nil {
				return nil, err
			}
			return b.vm.ToValue(n), nil
		}},
		Func{Name: "randomString", MinArgs: 1, MaxArgs: 2, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			length := argInt(call, 0, 0)
			if length < 0 || length > maxRandomString {
				return nil, Errorf(KindParameterType, "length must be between 0 and %d", maxRandomString)
			}
			alphabet := []rune(defaultAlphabet)
			if custom := argString(call, 1); custom != "" {
				alphabet = []rune(custom)
			}
			var sb strings.Builder
			sb.Grow(length)
			for range length {
				i, err := random.Int(0, int64(len(alphabet)-1))
				if err != nil {
					return nil, err
				}
				sb.WriteRune(alphabet[i])
			}
			return b.vm.ToValue(sb.String()), nil
		}},
		Func{Name: "uuid", MinArgs: 0, MaxArgs: 0, Fn: func(goja.FunctionCall) (goja.Value, error) {
			return b.vm.ToValue(uuid.NewString()), nil
		}},
	)
	return err
}
