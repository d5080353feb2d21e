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
	"math"

	"github.com/dop251/goja"
)

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

// argString returns argument i as a string, or "" when absent.
func argString(call goja.FunctionCall, i int) string {
	v := call.Argument(i)
	if !present(v) {
		return ""
	}
	return v.String()
}

// argInt returns argument i as an integer, or def when absent.
func argInt(call goja.FunctionCall, i int, def int) int {
	v := call.Argument(i)
	if !present(v) {
		return def
	}
	f := v.ToFloat()
	if math.IsNaN(f) {
		return def
	}
	return int(v.ToInteger())
}

// argBool returns argument i as a boolean, or def when absent.
func argBool(call goja.FunctionCall, i int, def bool) bool {
	v := call.Argument(i)
	if !present(v) {
		return def
	}
	return v.ToBoolean()
}

// optionsOf reads the keys present on an options object. Absent or
// non-object values yield nil.
func optionsOf(v goja.Value) map[string]any {
	if !present(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	values := make(map[string]any, len(obj.Keys()))
	for _, key := range obj.Keys() {
		values[key] = obj.Get(key).Export()
	}
	return values
}

// optFloat reads a numeric option.
func optFloat(opts map[string]any, key string, def float64) float64 {
	switch v := opts[key].(type) {
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case float64:
		return v
	}
	return def
}

// enumObject creates an object of named integer constants.
func enumObject(vm *goja.Runtime, values map[string]int) *goja.Object {
	obj := vm.NewObject()
	for name, v := range values {
		_ = obj.Set(name, v)
	}
	return obj
}
