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

// Package debug provides the interactive breakpoint command.
package debug

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tombee/sluice/internal/commands/shared"
	debugger "github.com/tombee/sluice/internal/debug"
	"github.com/tombee/sluice/internal/engine"
)

// isInteractive reports whether the debug shell can prompt on r.
var isInteractive = func(r io.Reader) bool {
	return !shared.IsNonInteractive(r)
}

type options struct {
	flags          shared.DebugFlags
	nonInteractive bool
	maxHits        int64
}

// NewDebugCommand creates the debug command.
func NewDebugCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "debug <transformation>",
		Short: "Run a transformation with breakpoints",
		Annotations: map[string]string{
			"group": "debugging",
		},
		Long: `Debug runs a transformation with breakpoints and previews attached.

A breakpoint is given as step:rows:condition. The debugger keeps the last
rows written by the step, newest first, and pauses the transformation each
time the condition holds for a row. Conditions are expressions over the
row's columns, e.g. 'amount > 100 && status == "paid"'.

When stdin is a terminal a prompt opens on each hit:
  rows            show the captured rows
  query <jq>      run a jq expression over the captured rows
  hits            show hit counters
  continue        resume the transformation
  abort           stop the transformation

With --non-interactive, in CI, with SLUICE_NON_INTERACTIVE=true, or when
stdin is not a terminal, every hit is printed and the transformation resumes
on its own. --max-hits stops it after the given number of hits over all
steps.`,
		Example: `  # Pause on large paid orders, keeping the last 5 rows
  sluice debug orders.yaml --breakpoint 'paid:5:amount > 100'

  # Log every refund without stopping
  sluice debug orders.yaml --breakpoint 'orders:0:status == "refunded"' --non-interactive

  # Combine with a preview of another step
  sluice debug orders.yaml --breakpoint 'sink:3:is_large' --preview orders:5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(cmd, args[0], &opts)
		},
	}

	opts.flags.Register(cmd, "preview", true)
	cmd.Flags().BoolVar(&opts.nonInteractive, "non-interactive", false, "Print hits and resume instead of prompting")
	cmd.Flags().Int64Var(&opts.maxHits, "max-hits", 0, "Stop after this many hits in non-interactive mode (0 means no limit)")
	return cmd
}

func runDebug(cmd *cobra.Command, path string, opts *options) error {
	cfg, err := opts.flags.Config()
	if err != nil {
		return err
	}
	if !cfg.Enabled() {
		return shared.NewInvalidDebugConfigError("nothing to debug", fmt.Errorf("use --breakpoint step:rows:condition or --preview step[:rows]"))
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

	interactive := !opts.nonInteractive && !shared.GetJSON() && isInteractive(cmd.InOrStdin())

	var runErr error
	if interactive {
		runErr = runInteractive(cmd, rt, trans, td)
	} else {
		runErr = runUnattended(cmd, trans, td, opts.maxHits)
	}

	if shared.GetJSON() {
		if err := shared.EmitJSON(cmd.OutOrStdout(), shared.NewRunResponse("debug", trans, td, runErr)); err != nil {
			return err
		}
		return runErr
	}
	if runErr != nil {
		return runErr
	}

	if !shared.GetQuiet() {
		printSummary(cmd.OutOrStdout(), trans, td)
	}
	return nil
}

// runInteractive drives the transformation from the debug shell.
func runInteractive(cmd *cobra.Command, rt *shared.Runtime, trans *engine.Trans, td *debugger.TransDebug) error {
	events := debugger.NewEventListener(debugger.DefaultEventBuffer, rt.Logger)
	td.AddBreakpointListenerToAll(events)
	if err := td.Attach(trans); err != nil {
		return shared.NewExecutionError("cannot attach debugger", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := trans.Start(ctx); err != nil {
		return shared.NewExecutionError("cannot start transformation", err)
	}

	done := make(chan error, 1)
	go func() {
		err := trans.Wait()
		events.Finish(err)
		done <- err
	}()

	shell := debugger.NewShell(events.Events(), trans,
		debugger.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
		debugger.WithDebugger(td))
	if err := shell.Run(ctx); err != nil {
		trans.Stop()
		<-done
		return shared.NewExecutionError("debug session failed", err)
	}

	if err := <-done; err != nil {
		return shared.NewExecutionError("transformation failed", err)
	}
	return nil
}

// runUnattended prints each hit and resumes, stopping after maxHits hits.
func runUnattended(cmd *cobra.Command, trans *engine.Trans, td *debugger.TransDebug, maxHits int64) error {
	var mu sync.Mutex
	out := cmd.OutOrStdout()
	quiet := shared.GetJSON() || shared.GetQuiet()

	td.AddBreakpointListenerToAll(debugger.BreakpointListenerFunc(
		func(td *debugger.TransDebug, sd *debugger.StepDebug, buf *debugger.RowBuffer) error {
			if !quiet {
				mu.Lock()
				fmt.Fprintln(out, shared.RenderStepHeader(sd.Step(), sd.Mode().String(), sd.Hits()))
				fmt.Fprintln(out, debugger.NewInspector(buf.Meta(), buf.Rows()).Table())
				mu.Unlock()
			}

			if maxHits > 0 && td.TotalHits() >= maxHits {
				trans.Stop()
				return nil
			}
			trans.ResumeRunning()
			return nil
		}))

	if err := td.Attach(trans); err != nil {
		return shared.NewExecutionError("cannot attach debugger", err)
	}
	return shared.RunTransformation(cmd.Context(), trans)
}

func printSummary(w io.Writer, trans *engine.Trans, td *debugger.TransDebug) {
	status := fmt.Sprintf("%s finished, %d hits", trans.Name(), td.TotalHits())
	if trans.IsStopped() {
		fmt.Fprintln(w, shared.RenderWarn(fmt.Sprintf("%s stopped, %d hits", trans.Name(), td.TotalHits())))
	} else {
		fmt.Fprintln(w, shared.RenderOK(status))
	}
	for _, step := range td.Steps() {
		sd := td.StepDebug(step)
		fmt.Fprintf(w, "  %s\n", shared.RenderStepHeader(step, sd.Mode().String(), sd.Hits()))
	}
}
