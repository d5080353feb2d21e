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

// Package actions implements the actions command.
package actions

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/deskrun/internal/action"
	"github.com/tombee/deskrun/internal/commands/completion"
	"github.com/tombee/deskrun/internal/commands/shared"
	"github.com/tombee/deskrun/internal/power"
)

// NewCommand creates the actions command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "actions [id]",
		Short: "List registered actions",
		Long: `List the actions that sequences and the Actions script global can run,
with their parameters and the exceptions they raise.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completion.CompleteActionIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig()
			if err != nil {
				return err
			}
			factory, err := shared.NewFactory(cfg, power.New())
			if err != nil {
				return err
			}

			defs := factory.Definitions()
			if len(args) == 1 {
				def, err := factory.Definition(args[0])
				if err != nil {
					return err
				}
				defs = []*action.Definition{def}
			}

			if shared.GetJSON() {
				return shared.EmitJSON(newResponse(defs))
			}
			printDefinitions(cmd.OutOrStdout(), defs)
			return nil
		},
	}
}

// ActionJSON describes one action in --json output.
type ActionJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Pack        string          `json:"pack"`
	Description string          `json:"description,omitempty"`
	Parameters  []ParameterJSON `json:"parameters"`
	Exceptions  []string        `json:"exceptions"`
}

// ParameterJSON describes one parameter in --json output.
type ParameterJSON struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// ListResponse is the --json output of actions.
type ListResponse struct {
	shared.JSONResponse
	Actions []ActionJSON `json:"actions"`
}

func newResponse(defs []*action.Definition) ListResponse {
	resp := ListResponse{
		JSONResponse: shared.JSONResponse{Version: "1.0", Command: "actions", Success: true},
		Actions:      make([]ActionJSON, 0, len(defs)),
	}
	for _, def := range defs {
		a := ActionJSON{
			ID:          def.ID,
			Name:        def.Name,
			Pack:        def.Pack,
			Description: def.Description,
			Parameters:  make([]ParameterJSON, 0, len(def.Parameters)),
			Exceptions:  def.AllExceptions(),
		}
		for _, p := range def.Parameters {
			a.Parameters = append(a.Parameters, ParameterJSON(p))
		}
		resp.Actions = append(resp.Actions, a)
	}
	return resp
}

func printDefinitions(w io.Writer, defs []*action.Definition) {
	for i, def := range defs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n", shared.Header.Render(def.ID), shared.RenderLabel("("+def.Pack+")"))
		if def.Description != "" {
			fmt.Fprintf(w, "  %s\n", def.Description)
		}
		for _, p := range def.Parameters {
			req := ""
			if p.Required {
				req = " (required)"
			}
			fmt.Fprintf(w, "  %-14s %s%s\n", p.Name, p.Description, req)
		}
		fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("raises:"), strings.Join(def.AllExceptions(), ", "))
	}
}
