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

package shared

import (
	"encoding/json"
	"io"
	"os"
)

// JSONResponse is the envelope of every --json output.
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError is a structured error in --json output.
type JSONError struct {
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Location *JSONLocation `json:"location,omitempty"`
	StepID   string        `json:"step_id,omitempty"`
}

// JSONLocation is a position in a script.
type JSONLocation struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// jsonOut is where JSON responses go. Tests swap it.
var jsonOut io.Writer = os.Stdout

// EmitJSON writes response as indented JSON.
func EmitJSON(response any) error {
	encoder := json.NewEncoder(jsonOut)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// SetJSONOutputForTest redirects EmitJSON and returns a restore function.
func SetJSONOutputForTest(w io.Writer) func() {
	prev := jsonOut
	jsonOut = w
	return func() { jsonOut = prev }
}
