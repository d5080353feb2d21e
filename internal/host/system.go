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
	"github.com/dop251/goja"

	"github.com/tombee/deskrun/internal/power"
)

// Power runs a power operation through the bridge's controller.
func (b *Bridge) Power(op power.Operation, force bool) error {
	return b.power.Do(b.ctx, op, force)
}

func (b *Bridge) powerFunc(name string, op power.Operation, takesForce bool) Func {
	maxArgs := 0
	if takesForce {
		maxArgs = 1
	}
	return Func{Name: name, MinArgs: 0, MaxArgs: maxArgs, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		return nil, b.Power(op, argBool(call, 0, false))
	}}
}

// RegisterSystem defines the System global.
func (b *Bridge) RegisterSystem() error {
	_, err := b.SetGlobal("System",
		b.powerFunc("logout", power.Logout, true),
		b.powerFunc("restart", power.Restart, true),
		b.powerFunc("shutdown", power.Shutdown, true),
		b.powerFunc("suspend", power.Suspend, true),
		b.powerFunc("hibernate", power.Hibernate, true),
		b.powerFunc("lockScreen", power.LockScreen, false),
		b.powerFunc("startScreenSaver", power.StartScreenSaver, false),
	)
	return err
}
