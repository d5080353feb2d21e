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

package fileop

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

// ErrorString translates a Win32 error code into the message shown to
// scripts.
func ErrorString(code int) string {
	switch syscall.Errno(code) {
	case windows.ERROR_FILE_NOT_FOUND:
		return "File not found"
	case windows.ERROR_PATH_NOT_FOUND:
		return "Path not found"
	case windows.ERROR_ACCESS_DENIED:
		return "Access denied"
	case windows.ERROR_SHARING_VIOLATION:
		return "This file is used by another process"
	case windows.ERROR_DISK_FULL:
		return "The disk is full"
	case windows.ERROR_FILE_EXISTS, windows.ERROR_ALREADY_EXISTS:
		return "The file already exists"
	case windows.ERROR_INVALID_NAME:
		return "Invalid name"
	case windows.ERROR_CANCELLED:
		return "Canceled"
	default:
		return fmt.Sprintf("Unknown error (%d)", code)
	}
}
