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

//go:build windows

package power

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	powrprof            = windows.NewLazySystemDLL("powrprof.dll")
	procExitWindowsEx   = user32.NewProc("ExitWindowsEx")
	procLockWorkStation = user32.NewProc("LockWorkStation")
	procGetDesktopWnd   = user32.NewProc("GetDesktopWindow")
	procDefWindowProcW  = user32.NewProc("DefWindowProcW")
	procSetSuspendState = powrprof.NewProc("SetSuspendState")
)

// ExitWindowsEx flags and screen saver command from winuser.h.
const (
	ewxLogoff   = 0x00000000
	ewxReboot   = 0x00000002
	ewxForce    = 0x00000004
	ewxPowerOff = 0x00000008

	wmSysCommand = 0x0112
	scScreenSave = 0xF140

	shtdnReasonFlagPlanned = 0x80000000
)

type win32Controller struct{}

// New returns the controller for this platform.
func New() Controller {
	return win32Controller{}
}

func (win32Controller) Do(_ context.Context, op Operation, force bool) error {
	switch op {
	case Logout:
		return exitWindows(op, ewxLogoff, force)
	case Restart:
		return exitWindows(op, ewxReboot, force)
	case Shutdown:
		return exitWindows(op, ewxPowerOff, force)
	case Suspend, Hibernate:
		if err := procSetSuspendState.Find(); err != nil {
			return &NotAvailableError{Op: op, Cause: err}
		}
		hibernate := uintptr(0)
		if op == Hibernate {
			hibernate = 1
		}
		if r, _, err := procSetSuspendState.Call(hibernate, boolArg(force), 0); r == 0 {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case LockScreen:
		if r, _, err := procLockWorkStation.Call(); r == 0 {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case StartScreenSaver:
		desktop, _, _ := procGetDesktopWnd.Call()
		procDefWindowProcW.Call(desktop, wmSysCommand, scScreenSave, 0)
		return nil
	}
	return &NotAvailableError{Op: op, Reason: "unsupported operation"}
}

func exitWindows(op Operation, flags uint32, force bool) error {
	if flags != ewxLogoff {
		if err := enableShutdownPrivilege(); err != nil {
			return &NotAvailableError{Op: op, Reason: "shutdown privilege not granted", Cause: err}
		}
	}
	if force {
		flags |= ewxForce
	}
	if r, _, err := procExitWindowsEx.Call(uintptr(flags), shtdnReasonFlagPlanned); r == 0 {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func enableShutdownPrivilege() error {
	var token windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token); err != nil {
		return err
	}
	defer token.Close()

	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, windows.StringToUTF16Ptr("SeShutdownPrivilege"), &luid); err != nil {
		return err
	}
	privileges := windows.Tokenprivileges{PrivilegeCount: 1}
	privileges.Privileges[0] = windows.LUIDAndAttributes{Luid: luid, Attributes: windows.SE_PRIVILEGE_ENABLED}
	return windows.AdjustTokenPrivileges(token, false, &privileges, 0, nil, nil)
}

func boolArg(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}
