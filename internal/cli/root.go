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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/sluice/internal/commands/completion"
	"github.com/tombee/sluice/internal/commands/debug"
	"github.com/tombee/sluice/internal/commands/preview"
	"github.com/tombee/sluice/internal/commands/run"
	"github.com/tombee/sluice/internal/commands/shared"
	"github.com/tombee/sluice/internal/commands/validate"
	versioncmd "github.com/tombee/sluice/internal/commands/version"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for sluice with every
// subcommand attached.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sluice",
		Short: "sluice - dataflow transformations with previews and breakpoints",
		Long: `sluice runs dataflow transformations defined in YAML: generators feed rows
through filter and calc steps over buffered hops, each step running in one
or more parallel copies.

Rows can be inspected while they flow. 'sluice preview' shows the first rows
a step writes, and 'sluice debug' pauses the transformation when a
breakpoint condition holds so the captured rows can be examined.

Run 'sluice validate <file>' to check a transformation before running it.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	flags := shared.RegisterFlagPointers()
	cmd.PersistentFlags().BoolVarP(flags.Verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(flags.Quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(flags.JSON, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(flags.LogFormat, "log-format", "", "Log format (text, json); overrides LOG_FORMAT")
	cmd.PersistentFlags().BoolVar(flags.Trace, "trace", false, "Print OpenTelemetry spans to stderr")
	cmd.PersistentFlags().StringVar(flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddGroup(
		&cobra.Group{ID: "execution", Title: "Execution:"},
		&cobra.Group{ID: "debugging", Title: "Debugging:"},
		&cobra.Group{ID: "diagnostics", Title: "Other:"},
	)

	runCmd := run.NewCommand()
	validateCmd := validate.NewCommand()
	previewCmd := preview.NewCommand()
	debugCmd := debug.NewDebugCommand()
	for _, c := range []*cobra.Command{runCmd, validateCmd, previewCmd, debugCmd} {
		completion.RegisterDebugFlags(c)
	}

	versionCmd := versioncmd.NewVersionCommand()
	versionCmd.Annotations = map[string]string{"group": "diagnostics"}

	for _, c := range []*cobra.Command{runCmd, validateCmd, previewCmd, debugCmd, completion.NewCommand(), versionCmd} {
		c.GroupID = c.Annotations["group"]
		cmd.AddCommand(c)
	}

	cmd.SetHelpCommand(NewHelpCommand(cmd))
	cmd.SetHelpCommandGroupID("diagnostics")
	cmd.SetCompletionCommandGroupID("diagnostics")
	// Register help now so it can be looked up before Execute.
	cmd.InitDefaultHelpCmd()
	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
