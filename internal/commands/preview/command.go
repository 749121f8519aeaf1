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

package preview

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/sluice/internal/commands/shared"
	"github.com/tombee/sluice/internal/debug"
	"github.com/tombee/sluice/internal/engine"
	"github.com/tombee/sluice/internal/jq"
)

// NewCommand creates the preview command
func NewCommand() *cobra.Command {
	var (
		flags      shared.DebugFlags
		expression string
	)

	cmd := &cobra.Command{
		Use:   "preview <transformation>",
		Short: "Show the first rows written by one or more steps",
		Annotations: map[string]string{
			"group": "debugging",
		},
		Long: `Preview runs a transformation with a preview buffer on each selected step
and prints the captured rows. The transformation stops as soon as every
preview buffer is full, or runs to completion when a step writes fewer rows.

A step is given as name or name:rows. --rows sets the count for steps that
name none.

With --jq the expression is applied to the captured rows of each step,
which are passed as an array of objects keyed by column name.`,
		Example: `  # First 10 rows of the paid step
  sluice preview orders.yaml --step paid

  # First 5 rows of two steps
  sluice preview orders.yaml --step orders --step paid --rows 5

  # Only the amounts
  sluice preview orders.yaml --step paid --jq 'map(.amount)'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(flags.Previews) == 0 {
				return shared.NewInvalidDebugConfigError("no step to preview", fmt.Errorf("use --step name[:rows]"))
			}
			return runPreview(cmd, args[0], &flags, expression)
		},
	}

	flags.Register(cmd, "step", false)
	cmd.Flags().StringVar(&expression, "jq", "", "jq expression applied to the captured rows of each step")
	return cmd
}

func runPreview(cmd *cobra.Command, path string, flags *shared.DebugFlags, expression string) error {
	cfg, err := flags.Config()
	if err != nil {
		return err
	}

	exec := jq.NewExecutor(0, 0)
	if expression != "" {
		if err := exec.Validate(expression); err != nil {
			return shared.NewInvalidDebugConfigError("invalid --jq expression", err)
		}
	}

	rt, err := shared.NewRuntime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	trans, err := shared.LoadTransformation(path, rt.Logger)
	if err != nil {
		return err
	}
	td, err := shared.BuildDebugger(cfg, trans, rt.DebugOptions()...)
	if err != nil {
		return err
	}

	td.AddBreakpointListenerToAll(stopWhenFull(trans))
	if err := td.Attach(trans); err != nil {
		return shared.NewExecutionError("cannot attach debugger", err)
	}

	runErr := shared.RunTransformation(cmd.Context(), trans)

	var queries map[string]any
	if runErr == nil && expression != "" {
		queries, err = queryAll(cmd, exec, td, expression)
		if err != nil {
			runErr = shared.NewExecutionError("jq query failed", err)
		}
	}

	if shared.GetJSON() {
		resp := shared.NewRunResponse("preview", trans, td, runErr)
		if queries != nil {
			resp.Query = queries
		}
		if err := shared.EmitJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		return runErr
	}
	if runErr != nil {
		return runErr
	}

	printPreview(cmd.OutOrStdout(), td, queries)
	return nil
}

// stopWhenFull resumes the transformation after a preview buffer fills and
// stops it once every preview buffer is full.
func stopWhenFull(trans *engine.Trans) debug.BreakpointListener {
	return debug.BreakpointListenerFunc(func(td *debug.TransDebug, sd *debug.StepDebug, buf *debug.RowBuffer) error {
		for _, other := range td.StepDebugMap() {
			if other.IsReadingFirstRows() && other.Hits() == 0 {
				trans.ResumeRunning()
				return nil
			}
		}
		trans.Stop()
		return nil
	})
}

func queryAll(cmd *cobra.Command, exec *jq.Executor, td *debug.TransDebug, expression string) (map[string]any, error) {
	out := make(map[string]any)
	for _, step := range td.Steps() {
		meta, rows := td.StepDebug(step).Snapshot()
		result, err := debug.NewInspector(meta, rows).Query(cmd.Context(), exec, expression)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step, err)
		}
		out[step] = result
	}
	return out, nil
}

func printPreview(w io.Writer, td *debug.TransDebug, queries map[string]any) {
	for i, step := range td.Steps() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		sd := td.StepDebug(step)
		meta, rows := sd.Snapshot()
		inspector := debug.NewInspector(meta, rows)

		fmt.Fprintf(w, "%s %s\n", shared.RenderStepHeader(step, sd.Mode().String(), sd.Hits()),
			shared.Muted.Render(fmt.Sprintf("%d of %d rows", inspector.Len(), sd.RowCount())))

		if queries == nil {
			fmt.Fprintln(w, inspector.Table())
			continue
		}
		formatted, err := inspector.Format(queries[step])
		if err != nil {
			formatted = fmt.Sprintf("%v", queries[step])
		}
		fmt.Fprintln(w, formatted)
	}
}
