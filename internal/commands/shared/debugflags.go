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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/sluice/internal/debug"
)

// DebugFlags holds the raw --preview and --breakpoint values of a command.
type DebugFlags struct {
	Previews    []string
	Breakpoints []string

	// Rows is the preview size used when a preview names no row count.
	Rows int
}

// Register binds the flags on cmd. previewFlag names the preview flag,
// which differs between commands.
func (f *DebugFlags) Register(cmd *cobra.Command, previewFlag string, breakpoints bool) {
	cmd.Flags().StringArrayVar(&f.Previews, previewFlag, nil, "Preview the first rows of a step (step[:rows], repeatable)")
	cmd.Flags().IntVar(&f.Rows, "rows", debug.DefaultPreviewRows, "Rows to preview when a step names no count")
	if breakpoints {
		cmd.Flags().StringArrayVar(&f.Breakpoints, "breakpoint", nil, "Pause when a condition holds (step:rows:condition, repeatable)")
	}
}

// Config parses the flags into a debug configuration. Malformed values map
// to ExitInvalidDebugConfig.
func (f *DebugFlags) Config() (*debug.Config, error) {
	cfg := &debug.Config{}
	for _, s := range f.Previews {
		if f.Rows != debug.DefaultPreviewRows && !strings.Contains(s, ":") {
			s = fmt.Sprintf("%s:%d", s, f.Rows)
		}
		sc, err := debug.ParsePreview(s)
		if err != nil {
			return nil, NewInvalidDebugConfigError("invalid preview", err)
		}
		cfg.Add(sc)
	}
	for _, s := range f.Breakpoints {
		sc, err := debug.ParseBreakpoint(s)
		if err != nil {
			return nil, NewInvalidDebugConfigError("invalid breakpoint", err)
		}
		cfg.Add(sc)
	}
	return cfg, nil
}

// BuildDebugger validates cfg against meta and compiles it.
func BuildDebugger(cfg *debug.Config, meta debug.Meta, opts ...debug.Option) (*debug.TransDebug, error) {
	td, err := cfg.Build(meta, nil, opts...)
	if err != nil {
		return nil, NewInvalidDebugConfigError("invalid debug configuration", err)
	}
	return td, nil
}

// DebugOptions returns the debugger options for the runtime.
func (rt *Runtime) DebugOptions() []debug.Option {
	opts := []debug.Option{debug.WithLogger(rt.Logger)}
	if rt.Tracer != nil {
		opts = append(opts, debug.WithTracer(rt.Tracer))
	}
	return opts
}
