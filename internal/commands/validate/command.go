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

package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/sluice/internal/commands/shared"
	"github.com/tombee/sluice/internal/engine"
	"github.com/tombee/sluice/internal/log"
)

// Response is the JSON output of the validate command.
type Response struct {
	shared.JSONResponse
	Transformation string   `json:"transformation,omitempty"`
	Steps          []string `json:"steps,omitempty"`
	Debug          []string `json:"debug,omitempty"`
}

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	var flags shared.DebugFlags

	cmd := &cobra.Command{
		Use:   "validate <transformation>",
		Short: "Validate a transformation and its debug flags",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Validate checks that a transformation file parses, that its steps and
hops form a valid graph, and that every field expression and filter condition
compiles. Nothing is executed.

Preview and breakpoint flags are checked against the transformation as well:
each step must exist and each breakpoint condition must compile.

See also: sluice run, sluice debug`,
		Example: `  # Check a transformation
  sluice validate orders.yaml

  # Check a breakpoint before starting a debug session
  sluice validate orders.yaml --breakpoint 'paid:5:amount > 100'

  # Machine readable result
  sluice validate orders.yaml --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], &flags)
		},
	}

	flags.Register(cmd, "preview", true)
	return cmd
}

func runValidate(cmd *cobra.Command, path string, flags *shared.DebugFlags) error {
	resp, err := validate(path, flags)
	if shared.GetJSON() {
		resp.JSONResponse = shared.NewJSONResponse("validate", err)
		if emitErr := shared.EmitJSON(cmd.OutOrStdout(), resp); emitErr != nil {
			return emitErr
		}
		return err
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, shared.RenderOK(fmt.Sprintf("%s is valid", resp.Transformation)))
	for _, step := range resp.Steps {
		fmt.Fprintf(out, "  %s\n", step)
	}
	for _, d := range resp.Debug {
		fmt.Fprintf(out, "  %s %s\n", shared.Muted.Render("debug"), d)
	}
	return nil
}

func validate(path string, flags *shared.DebugFlags) (Response, error) {
	var resp Response

	cfg, err := flags.Config()
	if err != nil {
		return resp, err
	}

	trans, err := shared.LoadTransformation(path, log.Discard())
	if err != nil {
		return resp, err
	}

	def := trans.Definition()
	resp.Transformation = def.Name
	for _, step := range def.Steps {
		resp.Steps = append(resp.Steps, describeStep(step))
	}

	if _, err := shared.BuildDebugger(cfg, trans); err != nil {
		return resp, err
	}
	for _, sc := range cfg.Steps {
		resp.Debug = append(resp.Debug, sc.Mode.String()+" "+sc.String())
	}
	return resp, nil
}

func describeStep(step engine.StepDefinition) string {
	if step.Copies > 1 {
		return fmt.Sprintf("%s (%s x%d)", step.Name, step.Type, step.Copies)
	}
	return fmt.Sprintf("%s (%s)", step.Name, step.Type)
}
