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

package completion

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/deskrun/internal/commands/shared"
	"github.com/tombee/deskrun/internal/history"
	"github.com/tombee/deskrun/internal/power"
)

const (
	historyTimeout = 500 * time.Millisecond
	maxRunIDs      = 50
)

// ScriptExtensions are the file types the run and validate commands accept.
var ScriptExtensions = []string{"js", "yaml", "yml"}

// SafeCompletionWrapper runs fn and turns a panic into an empty completion.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, directive
	}
	return results, directive
}

// CompleteScriptFiles limits file completion to scripts and sequences.
func CompleteScriptFiles(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return ScriptExtensions, cobra.ShellCompDirectiveFilterFileExt
}

// CompleteRunIDs completes ids of recorded runs, newest first, described
// as "script (status)".
func CompleteRunIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		runs, err := recentRuns()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return runCompletions(runs, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
}

func recentRuns() ([]*history.Run, error) {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return nil, err
	}
	store, err := shared.OpenHistory(cfg)
	if err != nil || store == nil {
		return nil, err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	return store.List(ctx, history.Filter{Limit: maxRunIDs})
}

func runCompletions(runs []*history.Run, prefix string) []string {
	out := make([]string, 0, len(runs))
	for _, r := range runs {
		if !strings.HasPrefix(r.ID, prefix) {
			continue
		}
		out = append(out, r.ID+"\t"+r.Script+" ("+string(r.Status)+")")
	}
	return out
}

// CompleteActionIDs completes registered action ids.
func CompleteActionIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		cfg, err := shared.LoadConfig()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		factory, err := shared.NewFactory(cfg, power.New())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var out []string
		for _, def := range factory.Definitions() {
			if strings.HasPrefix(def.ID, toComplete) {
				out = append(out, def.ID+"\t"+def.Description)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}
