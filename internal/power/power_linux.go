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

//go:build linux

package power

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	logindDest        = "org.freedesktop.login1"
	logindPath        = "/org/freedesktop/login1"
	logindManager     = "org.freedesktop.login1.Manager"
	logindSessionPath = "/org/freedesktop/login1/session/auto"
	logindSession     = "org.freedesktop.login1.Session"

	screenSaverDest  = "org.freedesktop.ScreenSaver"
	screenSaverPath  = "/org/freedesktop/ScreenSaver"
	screenSaverIface = "org.freedesktop.ScreenSaver"
)

// Bus is the subset of a D-Bus connection the controller needs.
type Bus interface {
	Call(ctx context.Context, dest, path, method string, args ...any) ([]any, error)
	Close() error
}

type dbusBus struct {
	conn *dbus.Conn
}

func (b *dbusBus) Call(ctx context.Context, dest, path, method string, args ...any) ([]any, error) {
	call := b.conn.Object(dest, dbus.ObjectPath(path)).CallWithContext(ctx, method, 0, args...)
	return call.Body, call.Err
}

func (b *dbusBus) Close() error {
	return b.conn.Close()
}

func systemBus() (Bus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}
	return &dbusBus{conn: conn}, nil
}

func sessionBus() (Bus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &dbusBus{conn: conn}, nil
}

// LogindController drives systemd-logind on the system bus and the
// freedesktop screen saver on the session bus.
type LogindController struct {
	SystemBus  func() (Bus, error)
	SessionBus func() (Bus, error)
}

// New returns the controller for this platform.
func New() Controller {
	return &LogindController{SystemBus: systemBus, SessionBus: sessionBus}
}

// managerOps maps manager-level operations to their capability query and
// action methods.
var managerOps = map[Operation][2]string{
	Restart:   {"CanReboot", "Reboot"},
	Shutdown:  {"CanPowerOff", "PowerOff"},
	Suspend:   {"CanSuspend", "Suspend"},
	Hibernate: {"CanHibernate", "Hibernate"},
}

// Do implements Controller. For manager operations force disables the
// interactive authorization prompt.
func (c *LogindController) Do(ctx context.Context, op Operation, force bool) error {
	if op == StartScreenSaver {
		return c.withBus(c.SessionBus, op, func(bus Bus) error {
			_, err := bus.Call(ctx, screenSaverDest, screenSaverPath, screenSaverIface+".SetActive", true)
			return err
		})
	}

	return c.withBus(c.SystemBus, op, func(bus Bus) error {
		switch op {
		case Logout:
			_, err := bus.Call(ctx, logindDest, logindSessionPath, logindSession+".Terminate")
			return err
		case LockScreen:
			_, err := bus.Call(ctx, logindDest, logindSessionPath, logindSession+".Lock")
			return err
		}

		methods, ok := managerOps[op]
		if !ok {
			return &NotAvailableError{Op: op, Reason: "unsupported operation"}
		}
		body, err := bus.Call(ctx, logindDest, logindPath, logindManager+"."+methods[0])
		if err != nil {
			return err
		}
		if len(body) > 0 {
			if answer, _ := body[0].(string); answer == "na" || answer == "no" {
				return &NotAvailableError{Op: op, Reason: fmt.Sprintf("logind reports %q", answer)}
			}
		}
		_, err = bus.Call(ctx, logindDest, logindPath, logindManager+"."+methods[1], !force)
		return err
	})
}

func (c *LogindController) withBus(dial func() (Bus, error), op Operation, fn func(Bus) error) error {
	if dial == nil {
		return &NotAvailableError{Op: op, Reason: "no bus"}
	}
	bus, err := dial()
	if err != nil {
		return &NotAvailableError{Op: op, Reason: "cannot connect to D-Bus", Cause: err}
	}
	defer bus.Close()

	err = fn(bus)
	if err == nil {
		return nil
	}
	var na *NotAvailableError
	if errors.As(err, &na) {
		return err
	}
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && isMissingService(dbusErr.Name) {
		return &NotAvailableError{Op: op, Reason: dbusErr.Name, Cause: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isMissingService(name string) bool {
	switch name {
	case "org.freedesktop.DBus.Error.ServiceUnknown",
		"org.freedesktop.DBus.Error.UnknownMethod",
		"org.freedesktop.DBus.Error.UnknownObject",
		"org.freedesktop.DBus.Error.NotSupported":
		return true
	}
	return false
}
