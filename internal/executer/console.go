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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dop251/goja"

	"github.com/tombee/deskrun/internal/host"
)

// Console writes script output. Warnings and errors go to Err.
type Console struct {
	Out          io.Writer
	Err          io.Writer
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
}

// NewConsole writes to the process standard streams.
func NewConsole() *Console {
	return &Console{
		Out:          os.Stdout,
		Err:          os.Stderr,
		WarningStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		ErrorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func joinArgs(call goja.FunctionCall) string {
	parts := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

func (c *Console) printer(name string, w func() io.Writer, style *lipgloss.Style, newline bool) host.Func {
	return host.Func{Name: name, MinArgs: 0, MaxArgs: host.Variadic, Fn: func(call goja.FunctionCall) (goja.Value, error) {
		text := joinArgs(call)
		if style != nil && text != "" {
			text = style.Render(text)
		}
		if newline {
			text += "\n"
		}
		_, err := io.WriteString(w(), text)
		if err != nil {
			return nil, fmt.Errorf("console write: %w", err)
		}
		return nil, nil
	}}
}

func (c *Console) funcs() []host.Func {
	out := func() io.Writer { return c.Out }
	errw := func() io.Writer { return c.Err }
	return []host.Func{
		c.printer("print", out, nil, false),
		c.printer("println", out, nil, true),
		c.printer("printWarning", errw, &c.WarningStyle, false),
		c.printer("printlnWarning", errw, &c.WarningStyle, true),
		c.printer("printError", errw, &c.ErrorStyle, false),
		c.printer("printlnError", errw, &c.ErrorStyle, true),
	}
}
