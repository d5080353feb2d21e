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

/*
Package cli builds the deskrun command tree.

	deskrun
	├── run          Run a script or sequence
	├── validate     Check scripts and sequences
	├── actions      List registered actions
	├── history      Show recent runs
	├── completion   Shell completion scripts
	└── version      Show version

Subcommands live in the internal/commands packages; main wires them onto the
root command returned by NewRootCommand.

# Global Flags

	--verbose, -v   Debug logging
	--quiet, -q     Errors only
	--json          Machine-readable output
	--config        Path to config file

# Exit Codes

	0  run completed
	1  script raised an exception
	2  script or sequence could not be loaded
	3  run was stopped
*/
package cli
