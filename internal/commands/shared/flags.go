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

// Package shared holds state and helpers common to deskrun commands.
package shared

// Global flag values, bound by the root command.
var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool
	configFlag  string

	// Build information, injected through ldflags.
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns the flag variables for the root command to
// bind: verbose, quiet, json and config.
func RegisterFlagPointers() (*bool, *bool, *bool, *string) {
	return &verboseFlag, &quietFlag, &jsonFlag, &configFlag
}

// SetVersion records build information.
func SetVersion(v, c, b string) {
	version, commit, buildDate = v, c, b
}

// GetVersion returns version, commit and build date.
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// GetVerbose reports --verbose.
func GetVerbose() bool { return verboseFlag }

// GetQuiet reports --quiet.
func GetQuiet() bool { return quietFlag }

// GetJSON reports --json.
func GetJSON() bool { return jsonFlag }

// GetConfigPath returns --config.
func GetConfigPath() string { return configFlag }

// SetConfigPathForTest overrides --config.
func SetConfigPathForTest(path string) { configFlag = path }

// SetJSONForTest overrides --json.
func SetJSONForTest(v bool) { jsonFlag = v }
