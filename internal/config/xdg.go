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

package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "deskrun"

// ConfigDir returns the XDG config directory for deskrun.
// Respects XDG_CONFIG_HOME.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	return filepath.Join(ConfigDir(), "config.yaml"), nil
}

// DataDir returns the XDG data directory for deskrun.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

func defaultHistoryPath() string {
	return filepath.Join(DataDir(), "history.db")
}
