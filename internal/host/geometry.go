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
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/tombee/deskrun/internal/target"
)

// construct runs a defined class constructor from Go.
func (b *Bridge) construct(class string, args ...any) (*goja.Object, error) {
	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = b.vm.ToValue(a)
	}
	return b.vm.New(b.vm.Get(class), values...)
}

func intProp(obj *goja.Object, name string) int {
	v := obj.Get(name)
	if !present(v) {
		return 0
	}
	return int(v.ToInteger())
}

// setProps assigns integer fields from positional arguments, or copies them
// from a single object argument of the same shape.
func setProps(this *goja.Object, call goja.ConstructorCall, names ...string) {
	if len(call.Arguments) == 1 {
		if src, ok := call.Arguments[0].(*goja.Object); ok {
			for _, n := range names {
				_ = this.Set(n, intProp(src, n))
			}
			return
		}
	}
	for i, n := range names {
		v := 0
		if i < len(call.Arguments) && present(call.Arguments[i]) {
			v = int(call.Arguments[i].ToInteger())
		}
		_ = this.Set(n, v)
	}
}

func propsEqual(a goja.Value, other goja.Value, names ...string) bool {
	ao, ok1 := a.(*goja.Object)
	bo, ok2 := other.(*goja.Object)
	if !ok1 || !ok2 {
		return false
	}
	for _, n := range names {
		if intProp(ao, n) != intProp(bo, n) {
			return false
		}
	}
	return true
}

func (b *Bridge) thisObject(call goja.FunctionCall) *goja.Object {
	return call.This.ToObject(b.vm)
}

func (b *Bridge) valueClass(name string, fields []string, extra ...Func) error {
	methods := []Func{
		{Name: "equals", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			return b.vm.ToValue(propsEqual(call.This, call.Argument(0), fields...)), nil
		}},
		{Name: "toString", MinArgs: 0, MaxArgs: 0, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			this := b.thisObject(call)
			parts := make([]string, len(fields))
			for i, f := range fields {
				parts[i] = strconv.Itoa(intProp(this, f))
			}
			return b.vm.ToValue(fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))), nil
		}},
	}
	_, err := b.DefineClass(Class{
		Name:    name,
		MinArgs: 0,
		MaxArgs: len(fields),
		New: func(call goja.ConstructorCall) (any, error) {
			setProps(call.This, call, fields...)
			return nil, nil
		},
		Methods: append(methods, extra...),
	})
	return err
}

func (b *Bridge) registerGeometry() error {
	if err := b.valueClass("Point", []string{"x", "y"}); err != nil {
		return err
	}
	if err := b.valueClass("Size", []string{"width", "height"}); err != nil {
		return err
	}
	err := b.valueClass("Rect", []string{"x", "y", "width", "height"},
		Func{Name: "isEmpty", MinArgs: 0, MaxArgs: 0, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			return b.vm.ToValue(rectOf(b.thisObject(call)).Empty()), nil
		}},
		Func{Name: "contains", MinArgs: 2, MaxArgs: 2, Fn: func(call goja.FunctionCall) (goja.Value, error) {
			r := rectOf(b.thisObject(call))
			x, y := argInt(call, 0, 0), argInt(call, 1, 0)
			return b.vm.ToValue(x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height), nil
		}},
	)
	if err != nil {
		return err
	}
	rect := b.vm.Get("Rect").ToObject(b.vm)
	return b.Register(rect, Func{Name: "normalized", MinArgs: 4, MaxArgs: 4, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		r := target.FromCorners(
			target.Point{X: argInt(call, 0, 0), Y: argInt(call, 1, 0)},
			target.Point{X: argInt(call, 2, 0), Y: argInt(call, 3, 0)},
		)
		return b.NewRect(r)
	}})
}

func rectOf(obj *goja.Object) target.Rect {
	return target.Rect{X: intProp(obj, "x"), Y: intProp(obj, "y"), Width: intProp(obj, "width"), Height: intProp(obj, "height")}
}

// NewRect creates a script Rect.
func (b *Bridge) NewRect(r target.Rect) (*goja.Object, error) {
	return b.construct("Rect", r.X, r.Y, r.Width, r.Height)
}

// Color

func parseColorName(name string) (color.NRGBA, bool) {
	s := strings.TrimPrefix(name, "#")
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	if len(s) == 6 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

func colorName(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func clampByte(v int) uint8 {
	return uint8(max(0, min(255, v)))
}

func colorOf(obj *goja.Object) color.NRGBA {
	return color.NRGBA{
		R: clampByte(intProp(obj, "red")),
		G: clampByte(intProp(obj, "green")),
		B: clampByte(intProp(obj, "blue")),
		A: clampByte(intProp(obj, "alpha")),
	}
}

// NewColor creates a script Color.
func (b *Bridge) NewColor(c color.NRGBA) (*goja.Object, error) {
	return b.construct("Color", int(c.R), int(c.G), int(c.B), int(c.A))
}

func (b *Bridge) registerColor() error {
	_, err := b.DefineClass(Class{
		Name:    "Color",
		MinArgs: 0,
		MaxArgs: 4,
		New: func(call goja.ConstructorCall) (any, error) {
			c := color.NRGBA{A: 0xff}
			switch {
			case len(call.Arguments) == 1:
				arg := call.Arguments[0]
				if obj, ok := arg.(*goja.Object); ok {
					c = colorOf(obj)
				} else if parsed, ok := parseColorName(arg.String()); ok {
					c = parsed
				} else {
					return nil, Errorf(KindParameterType, "invalid color name %q", arg.String())
				}
			case len(call.Arguments) >= 3:
				c.R = clampByte(int(call.Arguments[0].ToInteger()))
				c.G = clampByte(int(call.Arguments[1].ToInteger()))
				c.B = clampByte(int(call.Arguments[2].ToInteger()))
				if len(call.Arguments) == 4 {
					c.A = clampByte(int(call.Arguments[3].ToInteger()))
				}
			case len(call.Arguments) != 0:
				return nil, Errorf(KindParameterCount, "Incorrect parameter count")
			}
			_ = call.This.Set("red", int(c.R))
			_ = call.This.Set("green", int(c.G))
			_ = call.This.Set("blue", int(c.B))
			_ = call.This.Set("alpha", int(c.A))
			return nil, nil
		},
		Methods: []Func{
			{Name: "name", MinArgs: 0, MaxArgs: 0, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				return b.vm.ToValue(colorName(colorOf(b.thisObject(call)))), nil
			}},
			{Name: "toString", MinArgs: 0, MaxArgs: 0, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				return b.vm.ToValue(colorName(colorOf(b.thisObject(call)))), nil
			}},
			{Name: "equals", MinArgs: 1, MaxArgs: 1, Fn: func(call goja.FunctionCall) (goja.Value, error) {
				return b.vm.ToValue(propsEqual(call.This, call.Argument(0), "red", "green", "blue", "alpha")), nil
			}},
		},
	})
	return err
}
