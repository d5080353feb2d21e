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
	"bytes"

	"github.com/dop251/goja"
)

// RawData is a byte buffer shared between scripts and host functions.
type RawData struct {
	Data []byte
}

// bytesOf accepts RawData instances and strings.
func (b *Bridge) bytesOf(v goja.Value) ([]byte, bool) {
	if raw, ok := Native[*RawData](b, v); ok {
		return raw.Data, true
	}
	if !present(v) {
		return nil, false
	}
	if _, isObj := v.(*goja.Object); isObj {
		if ab, ok := v.Export().(goja.ArrayBuffer); ok {
			return ab.Bytes(), true
		}
		return nil, false
	}
	return []byte(v.String()), true
}

// NewRawData wraps data in a script RawData object.
func (b *Bridge) NewRawData(data []byte) *goja.Object {
	return b.Instantiate("RawData", &RawData{Data: data})
}

func (b *Bridge) registerRawData() error {
	_, err := b.DefineClass(Class{
		Name:    "RawData",
		MinArgs: 0,
		MaxArgs: 1,
		New: func(call goja.ConstructorCall) (any, error) {
			raw := &RawData{}
			if len(call.Arguments) == 1 {
				data, ok := b.bytesOf(call.Arguments[0])
				if !ok {
					return nil, Errorf(KindParameterType, "RawData expects a string or RawData")
				}
				raw.Data = bytes.Clone(data)
			}
			return raw, nil
		},
		Methods: []Func{
			{Name: "size", MinArgs: 0, MaxArgs: 0, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				raw, err := self[*RawData](b, call, "RawData")
				if err != nil {
					return nil, err
				}
				return b.vm.ToValue(len(raw.Data)), nil
			}},
			{Name: "toString", MinArgs: 0, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				raw, err := self[*RawData](b, call, "RawData")
				if err != nil {
					return nil, err
				}
				text, err := Encoding(argInt(call, 0, int(EncodingNative))).Decode(raw.Data)
				if err != nil {
					return nil, Errorf(KindParameterType, "cannot decode data: %v", err)
				}
				return b.vm.ToValue(text), nil
			}},
			{Name: "append", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				raw, err := self[*RawData](b, call, "RawData")
				if err != nil {
					return nil, err
				}
				data, ok := b.bytesOf(call.Argument(0))
				if !ok {
					return nil, Errorf(KindParameterType, "append expects a string or RawData")
				}
				raw.Data = append(raw.Data, data...)
				return call.This, nil
			}},
			{Name: "clear", MinArgs: 0, MaxArgs: 0, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				raw, err := self[*RawData](b, call, "RawData")
				if err != nil {
					return nil, err
				}
				raw.Data = nil
				return call.This, nil
			}},
			{Name: "equals", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				raw, err := self[*RawData](b, call, "RawData")
				if err != nil {
					return nil, err
				}
				other, ok := Native[*RawData](b, call.Argument(0))
				return b.vm.ToValue(ok && bytes.Equal(raw.Data, other.Data)), nil
			}},
			{Name: "clone", MinArgs: 0, MaxArgs: 0, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				raw, err := self[*RawData](b, call, "RawData")
				if err != nil {
					return nil, err
				}
				return b.NewRawData(bytes.Clone(raw.Data)), nil
			}},
		},
	})
	return err
}
