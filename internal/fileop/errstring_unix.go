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

//go:build !windows

package fileop

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrorString translates an errno value into the message shown to scripts.
func ErrorString(code int) string {
	switch syscall.Errno(code) {
	case unix.ENOENT:
		return "File not found"
	case unix.ENOTDIR:
		return "Path not found"
	case unix.EACCES, unix.EPERM:
		return "Access denied"
	case unix.EBUSY, unix.ETXTBSY:
		return "This file is used by another process"
	case unix.ENOSPC:
		return "The disk is full"
	case unix.EEXIST:
		return "The file already exists"
	case unix.EINVAL, unix.ENAMETOOLONG:
		return "Invalid name"
	case unix.ECANCELED:
		return "Canceled"
	default:
		return fmt.Sprintf("Unknown error (%d)", code)
	}
}
