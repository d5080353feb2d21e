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

package fileop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Adapter performs file operations through a native facility. Adapters
// never retry and never prompt beyond what the options allow.
type Adapter interface {
	Copy(ctx context.Context, source, destination string, opts Options) error
	Move(ctx context.Context, source, destination string, opts Options) error
	Rename(ctx context.Context, source, destination string, opts Options) error
	Remove(ctx context.Context, path string, opts Options) error
}

// Do dispatches req to the matching adapter method.
func Do(ctx context.Context, a Adapter, req Request) error {
	switch req.Op {
	case OpCopy:
		return a.Copy(ctx, req.Source, req.Destination, req.Options)
	case OpMove:
		return a.Move(ctx, req.Source, req.Destination, req.Options)
	case OpRename:
		return a.Rename(ctx, req.Source, req.Destination, req.Options)
	case OpRemove:
		return a.Remove(ctx, req.Source, req.Options)
	default:
		return fmt.Errorf("unknown file operation %q", req.Op)
	}
}

// Exists reports whether a filesystem entry is present at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// DestinationDir returns the directory a copy, move or rename writes into.
// A destination that names an existing directory, or ends with a path
// separator, is itself the directory; otherwise its parent is.
func DestinationDir(destination string) string {
	if strings.HasSuffix(destination, string(filepath.Separator)) || strings.HasSuffix(destination, "/") {
		return filepath.Clean(destination)
	}
	if info, err := os.Stat(destination); err == nil && info.IsDir() {
		return destination
	}
	return filepath.Dir(destination)
}

// ensureDestination makes sure the destination directory exists, creating
// it with mkdir when allowed. Nothing is touched when it fails.
func ensureDestination(op Op, destination string, opts Options, mkdir func(dir string) error) error {
	dir := DestinationDir(destination)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return nil
	}

	if !opts.CreateDestinationDirectory {
		return &Error{
			Op:        op,
			ErrorType: KindDirectoryDoesntExist,
			Message:   "Destination directory doesn't exist",
		}
	}

	if err := mkdir(dir); err != nil {
		return &Error{
			Op:        op,
			ErrorType: KindDirectoryCreation,
			Message:   "Unable to create destination directory",
			Cause:     err,
		}
	}
	return nil
}
