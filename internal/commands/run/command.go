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

package run

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/sluice/internal/commands/shared"
)

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run <transformation>",
		Short: "Run a transformation to completion",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Run executes a transformation without a debugger attached and prints the
number of rows each step wrote.

An interrupt (Ctrl-C) stops the transformation: steps finish the row they
are working on and the run ends without error.

Verbosity levels:
  --verbose  Log step lifecycle and debug detail
  (default)  Only warnings and the summary
  --quiet    Suppress everything but errors`,
		Example: `  # Run a transformation
  sluice run orders.yaml

  # Give up after ten seconds
  sluice run orders.yaml --timeout 10s

  # Export spans and serve metrics while running
  sluice run orders.yaml --trace --metrics-addr :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransformation(cmd, args[0], timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop with an error after this duration (0 disables)")
	return cmd
}

func runTransformation(cmd *cobra.Command, path string, timeout time.Duration) error {
	rt, err := shared.NewRuntime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	trans, err := shared.LoadTransformation(path, rt.Logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	runErr := shared.RunTransformation(ctx, trans)

	if shared.GetJSON() {
		if err := shared.EmitJSON(cmd.OutOrStdout(), shared.NewRunResponse("run", trans, nil, runErr)); err != nil {
			return err
		}
		return runErr
	}
	if runErr != nil {
		return runErr
	}

	if !shared.GetQuiet() {
		out := cmd.OutOrStdout()
		msg := fmt.Sprintf("%s finished in %s", trans.Name(), time.Since(start).Round(time.Millisecond))
		if trans.IsStopped() {
			fmt.Fprintln(out, shared.RenderWarn(trans.Name()+" stopped"))
		} else {
			fmt.Fprintln(out, shared.RenderOK(msg))
		}
		shared.PrintStepStats(out, shared.StepStatsFor(trans))
	}
	return nil
}
