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

// Package host exposes native capabilities to the script engine. Every
// host function is registered with a declared arity, is checked before it
// touches anything native, and reports failures as script exceptions whose
// name is the error kind.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/tombee/deskrun/internal/fileop"
	desklog "github.com/tombee/deskrun/internal/log"
	"github.com/tombee/deskrun/internal/power"
	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

// Bridge-level exception kinds.
const (
	KindParameterCount = "ParameterCountError"
	KindParameterType  = "ParameterTypeError"
	KindInternal       = "InternalError"
	KindCannotOpenFile = "CannotOpenFileError"
	KindWriteFailed    = "WriteFailedError"
	KindReadFailed     = "ReadFailedError"
	KindLoadFile       = "LoadFileError"
	KindIncludeFile    = "IncludeFileError"
	KindFilter         = "FilterError"
	KindProcess        = "ProcessError"
	KindLoadImage      = "LoadImageError"
	KindSaveImage      = "SaveImageError"
	KindNotAvailable   = power.KindNotAvailable
)

// Variadic as MaxArgs accepts any number of trailing arguments.
const Variadic = -1

// Func is a host function with its arity contract.
type Func struct {
	Name    string
	MinArgs int
	MaxArgs int
	Fn      func(call goja.FunctionCall) (goja.Value, error)
}

// Gate is consulted before every host call. A non-nil error means the run
// is stopping and the call must do nothing.
type Gate interface {
	Checkpoint() error
}

// Errorf returns an error that surfaces in scripts as an exception of kind.
func Errorf(kind, format string, args ...any) error {
	return &deskerrors.ScriptError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Bridge binds host capabilities to one runtime.
type Bridge struct {
	vm     *goja.Runtime
	ctx    context.Context
	gate   Gate
	logger *slog.Logger
	files  fileop.Adapter
	power  power.Controller

	native  *goja.Symbol
	classes map[string]*goja.Object
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithContext sets the context native operations run under.
func WithContext(ctx context.Context) Option {
	return func(b *Bridge) { b.ctx = ctx }
}

// WithGate sets the gate checked before every call.
func WithGate(g Gate) Option {
	return func(b *Bridge) { b.gate = g }
}

// WithLogger sets the bridge logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithFileAdapter overrides the platform file adapter.
func WithFileAdapter(a fileop.Adapter) Option {
	return func(b *Bridge) { b.files = a }
}

// WithPowerController overrides the platform power controller.
func WithPowerController(c power.Controller) Option {
	return func(b *Bridge) { b.power = c }
}

// New creates a bridge for vm.
func New(vm *goja.Runtime, opts ...Option) *Bridge {
	b := &Bridge{
		vm:      vm,
		ctx:     context.Background(),
		native:  goja.NewSymbol("native"),
		classes: make(map[string]*goja.Object),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = desklog.Discard()
	}
	if b.files == nil {
		b.files = fileop.New()
	}
	if b.power == nil {
		b.power = power.New()
	}
	return b
}

// VM returns the runtime the bridge is bound to.
func (b *Bridge) VM() *goja.Runtime { return b.vm }

// Context returns the context native operations run under.
func (b *Bridge) Context() context.Context { return b.ctx }

// Logger returns the bridge logger.
func (b *Bridge) Logger() *slog.Logger { return b.logger }

// NewError creates a script Error object named kind.
func (b *Bridge) NewError(kind, message string) *goja.Object {
	obj, err := b.vm.New(b.vm.Get("Error"), b.vm.ToValue(message))
	if err != nil {
		obj = b.vm.NewGoError(errors.New(message))
	}
	_ = obj.Set("name", kind)
	return obj
}

// Throw raises a script exception of kind. It does not return.
func (b *Bridge) Throw(kind, message string) {
	panic(b.NewError(kind, message))
}

// ThrowError raises err in the script. Engine exceptions are rethrown
// unchanged; other errors become an exception named after their kind.
func (b *Bridge) ThrowError(err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex)
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		panic(interrupted)
	}

	kind := deskerrors.KindOf(err)
	if kind == "" {
		kind = "Error"
	}
	message := err.Error()
	var se *deskerrors.ScriptError
	if errors.As(err, &se) {
		message = se.Message
	}
	panic(b.NewError(kind, message))
}

// Wrap turns f into an engine function: arity is checked first, then the
// gate, then f runs with panics converted into InternalError exceptions.
func (b *Bridge) Wrap(f Func) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !arityOK(f, len(call.Arguments)) {
			b.Throw(KindParameterCount, "Incorrect parameter count")
		}
		if b.gate != nil && b.gate.Checkpoint() != nil {
			return goja.Undefined()
		}
		defer b.recoverPanic(f.Name)

		v, err := f.Fn(call)
		if err != nil {
			b.ThrowError(err)
		}
		if v == nil {
			return goja.Undefined()
		}
		return v
	}
}

func arityOK(f Func, n int) bool {
	return n >= f.MinArgs && (f.MaxArgs == Variadic || n <= f.MaxArgs)
}

func (b *Bridge) recoverPanic(name string) {
	r := recover()
	if r == nil {
		return
	}
	switch r.(type) {
	case goja.Value, *goja.Exception, *goja.InterruptedError:
		panic(r)
	}
	b.logger.Error("host function panicked", slog.String("function", name), slog.Any("panic", r))
	panic(b.NewError(KindInternal, fmt.Sprintf("%s: %v", name, r)))
}

// Register sets each function as a property of obj.
func (b *Bridge) Register(obj *goja.Object, funcs ...Func) error {
	for _, f := range funcs {
		if err := obj.Set(f.Name, b.Wrap(f)); err != nil {
			return fmt.Errorf("register %s: %w", f.Name, err)
		}
	}
	return nil
}

// SetGlobal creates a global object holding funcs and returns it.
func (b *Bridge) SetGlobal(name string, funcs ...Func) (*goja.Object, error) {
	obj := b.vm.NewObject()
	if err := b.Register(obj, funcs...); err != nil {
		return nil, err
	}
	if err := b.vm.Set(name, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Class describes a constructible host class. New builds the native value
// from the constructor arguments; Methods are installed on the prototype and
// Statics on the constructor.
type Class struct {
	Name    string
	MinArgs int
	MaxArgs int
	New     func(call goja.ConstructorCall) (any, error)
	Methods []Func
	Statics []Func
}

// DefineClass registers c as a global constructor and returns it.
func (b *Bridge) DefineClass(c Class) (*goja.Object, error) {
	ctor := func(call goja.ConstructorCall) *goja.Object {
		if !arityOK(Func{MinArgs: c.MinArgs, MaxArgs: c.MaxArgs}, len(call.Arguments)) {
			b.Throw(KindParameterCount, "Incorrect parameter count")
		}
		defer b.recoverPanic(c.Name)

		native, err := c.New(call)
		if err != nil {
			b.ThrowError(err)
		}
		if native != nil {
			b.attach(call.This, native)
		}
		return nil
	}
	if err := b.vm.Set(c.Name, ctor); err != nil {
		return nil, err
	}
	ctorObj := b.vm.Get(c.Name).ToObject(b.vm)
	proto := ctorObj.Get("prototype").ToObject(b.vm)
	if err := b.Register(proto, c.Methods...); err != nil {
		return nil, err
	}
	if err := b.Register(ctorObj, c.Statics...); err != nil {
		return nil, err
	}
	b.classes[c.Name] = proto
	return ctorObj, nil
}

// Instantiate creates an instance of a defined class around native without
// running its constructor.
func (b *Bridge) Instantiate(class string, native any) *goja.Object {
	obj := b.vm.NewObject()
	if proto, ok := b.classes[class]; ok {
		_ = obj.SetPrototype(proto)
	}
	b.attach(obj, native)
	return obj
}

func (b *Bridge) attach(obj *goja.Object, native any) {
	_ = obj.DefineDataPropertySymbol(b.native, b.vm.ToValue(native), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
}

// Native returns the Go value attached to a host class instance.
func Native[T any](b *Bridge, v goja.Value) (T, bool) {
	var zero T
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return zero, false
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return zero, false
	}
	attached := obj.GetSymbol(b.native)
	if attached == nil {
		return zero, false
	}
	t, ok := attached.Export().(T)
	return t, ok
}

// self returns the native value bound to call.This.
func self[T any](b *Bridge, call goja.FunctionCall, class string) (T, error) {
	t, ok := Native[T](b, call.This)
	if !ok {
		return t, Errorf(KindParameterType, "%s method called on an incompatible object", class)
	}
	return t, nil
}
