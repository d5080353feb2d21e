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

package executer

import (
	"os"
	"path/filepath"
)

// ResolvePath resolves filename for include and loadUI. Absolute paths are
// returned as is. Relative paths are resolved against the directory of
// scriptFilename when that directory and the resulting file are readable;
// otherwise filename is returned unchanged. It never fails.
func ResolvePath(filename, scriptFilename string) string {
	if filepath.IsAbs(filename) || scriptFilename == "" {
		return filename
	}

	scriptPath, err := filepath.Abs(scriptFilename)
	if err != nil {
		return filename
	}
	dir := filepath.Dir(scriptPath)
	if !readable(dir) {
		return filename
	}

	candidate := filepath.Join(dir, filename)
	if !readable(candidate) {
		return filename
	}
	return candidate
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
