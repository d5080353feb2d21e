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

// Package validate implements the validate command.
package validate

import (
	"fmt"
	"path/filepath"

	"github.com/dop251/goja"
	"github.com/spf13/cobra"

	"github.com/tombee/deskrun/internal/action"
	"github.com/tombee/deskrun/internal/action/flow"
	"github.com/tombee/deskrun/internal/commands/completion"
	"github.com/tombee/deskrun/internal/commands/shared"
	"github.com/tombee/deskrun/internal/executer"
	"github.com/tombee/deskrun/internal/power"
	"github.com/tombee/deskrun/internal/sequence"
	deskerrors "github.com/tombee/deskrun/pkg/errors"
)

// NewCommand creates the validate command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check scripts and sequences without running them",
		Long: `Validate compiles scripts and parses sequences without running them.

For sequences it also checks action ids, exception names, goto targets,
conditions and the code of Code steps.`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completion.CompleteScriptFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig()
			if err != nil {
				return err
			}
			factory, err := shared.NewFactory(cfg, power.New())
			if err != nil {
				return err
			}

			results := make([]FileResult, 0, len(args))
			failed := 0
			for _, path := range args {
				err := Check(factory, path)
				res := FileResult{Path: path, Valid: err == nil}
				if err != nil {
					failed++
					res.Error = &shared.JSONError{Code: deskerrors.KindOf(err), Message: err.Error()}
				}
				results = append(results, res)
			}

			if shared.GetJSON() {
				if err := shared.EmitJSON(Response{
					JSONResponse: shared.JSONResponse{Version: "1.0", Command: "validate", Success: failed == 0},
					Files:        results,
				}); err != nil {
					return err
				}
			} else if !shared.GetQuiet() {
				for _, r := range results {
					if r.Valid {
						cmd.Println(shared.RenderOK(r.Path))
					} else {
						cmd.Println(shared.RenderError(r.Error.Message))
					}
				}
			}

			if failed > 0 {
				return &shared.ExitError{Code: shared.ExitInvalidScript}
			}
			return nil
		},
	}
}

// FileResult is the validation result of one file.
type FileResult struct {
	Path  string            `json:"path"`
	Valid bool              `json:"valid"`
	Error *shared.JSONError `json:"error,omitempty"`
}

// Response is the --json output of validate.
type Response struct {
	shared.JSONResponse
	Files []FileResult `json:"files"`
}

// Check validates the script or sequence at path.
func Check(catalog sequence.Catalog, path string) error {
	if !sequence.IsSequenceFile(path) {
		_, err := executer.Compile(path)
		return err
	}

	seq, err := sequence.Load(path)
	if err != nil {
		return err
	}
	if err := seq.Validate(catalog); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, step := range seq.Actions {
		if step.Action != flow.ActionCode {
			continue
		}
		code, err := action.Params(step.Params).String("code")
		if err != nil {
			continue
		}
		name := fmt.Sprintf("%s#%s", filepath.Base(path), step.ID)
		if _, err := goja.Compile(name, executer.LowerIncludes(code), false); err != nil {
			return &deskerrors.ScriptError{Kind: "SyntaxError", Message: err.Error(), File: path, Cause: err}
		}
	}
	return nil
}
