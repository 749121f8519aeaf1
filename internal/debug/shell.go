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

package debug

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tombee/sluice/internal/jq"
)

// Controller resumes or stops a paused transformation.
type Controller interface {
	ResumeRunning()
	Stop()
}

// Shell provides an interactive prompt on every debug hit.
type Shell struct {
	events  <-chan *Event
	ctrl    Controller
	td      *TransDebug
	jq      *jq.Executor
	input   io.Reader
	output  io.Writer
	scanner *bufio.Scanner
}

// ShellOption configures a Shell.
type ShellOption func(*Shell)

// WithIO sets the shell input and output.
func WithIO(input io.Reader, output io.Writer) ShellOption {
	return func(s *Shell) {
		s.input = input
		s.output = output
	}
}

// WithDebugger lets the hits command report counters of every step.
func WithDebugger(td *TransDebug) ShellOption {
	return func(s *Shell) {
		s.td = td
	}
}

// NewShell creates a shell reading events and driving ctrl.
func NewShell(events <-chan *Event, ctrl Controller, opts ...ShellOption) *Shell {
	s := &Shell{
		events: events,
		ctrl:   ctrl,
		jq:     jq.NewExecutor(0, 0),
		input:  os.Stdin,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scanner = bufio.NewScanner(s.input)
	return s
}

// Run handles events until the event channel is closed or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-sigCh:
			fmt.Fprintln(s.output, "\nInterrupt received, stopping transformation.")
			s.ctrl.Stop()

		case event, ok := <-s.events:
			if !ok || event == nil {
				return nil
			}
			if err := s.handleEvent(ctx, event); err != nil {
				return err
			}
		}
	}
}

func (s *Shell) handleEvent(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventBreakpoint, EventPreviewReady:
		return s.promptForCommand(ctx, event)

	case EventFinished:
		if event.Err != nil {
			fmt.Fprintf(s.output, "✗ Transformation failed: %v\n", event.Err)
		} else {
			fmt.Fprintln(s.output, "✓ Transformation finished")
		}
	}
	return nil
}

// promptForCommand reads commands until one of them resumes or stops the
// transformation. EOF stops it.
func (s *Shell) promptForCommand(ctx context.Context, event *Event) error {
	s.displayHit(event)
	inspector := NewInspector(event.Meta, event.Rows)

	for {
		fmt.Fprint(s.output, "debug> ")

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				s.ctrl.Stop()
				return fmt.Errorf("input error: %w", err)
			}
			fmt.Fprintln(s.output)
			s.ctrl.Stop()
			return nil
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		cmd, err := parseCommand(line)
		if err != nil {
			fmt.Fprintf(s.output, "Error: %v\n", err)
			continue
		}

		switch cmd.Type {
		case CommandContinue:
			fmt.Fprintln(s.output, "Resuming...")
			s.ctrl.ResumeRunning()
			return nil

		case CommandAbort:
			fmt.Fprintln(s.output, "Stopping transformation...")
			s.ctrl.Stop()
			return nil

		case CommandRows:
			fmt.Fprintln(s.output, inspector.Table())

		case CommandQuery:
			s.handleQuery(ctx, inspector, cmd.Args)

		case CommandHits:
			s.handleHits(event)

		case CommandHelp:
			s.showHelp()
		}
	}
}

// parseCommand parses a command line into a Command.
func parseCommand(line string) (*Command, error) {
	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "c", "continue":
		return &Command{Type: CommandContinue}, nil

	case "a", "abort":
		return &Command{Type: CommandAbort}, nil

	case "r", "rows":
		return &Command{Type: CommandRows}, nil

	case "q", "query":
		if args == "" {
			return nil, fmt.Errorf("query requires a jq expression")
		}
		return &Command{Type: CommandQuery, Args: args}, nil

	case "hits":
		return &Command{Type: CommandHits}, nil

	case "h", "help", "?":
		return &Command{Type: CommandHelp}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s (type 'help' for commands)", name)
	}
}

func (s *Shell) displayHit(event *Event) {
	fmt.Fprintln(s.output, "\n═══════════════════════════════════════════════════════════")
	if event.Type == EventPreviewReady {
		fmt.Fprintf(s.output, "Preview ready on step: %s (%d rows)\n", event.Step, len(event.Rows))
	} else {
		fmt.Fprintf(s.output, "Breakpoint hit on step: %s (hit %d)\n", event.Step, event.Hits)
	}
	fmt.Fprintf(s.output, "Hit ID: %s\n", event.HitID)
	fmt.Fprintln(s.output, "───────────────────────────────────────────────────────────")
	fmt.Fprint(s.output, NewInspector(event.Meta, event.Rows).Summary())
	fmt.Fprintln(s.output, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(s.output, "Commands: continue, abort, rows, query <jq>, hits, help")
	fmt.Fprintln(s.output)
}

func (s *Shell) handleQuery(ctx context.Context, inspector *Inspector, expression string) {
	result, err := inspector.Query(ctx, s.jq, expression)
	if err != nil {
		fmt.Fprintf(s.output, "Error: %v\n", err)
		return
	}

	formatted, err := inspector.Format(result)
	if err != nil {
		fmt.Fprintf(s.output, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.output, formatted)
}

func (s *Shell) handleHits(event *Event) {
	if s.td == nil {
		fmt.Fprintf(s.output, "%s: %d (total %d)\n", event.Step, event.Hits, event.TotalHits)
		return
	}

	for _, name := range s.td.Steps() {
		sd := s.td.StepDebug(name)
		fmt.Fprintf(s.output, "  %s [%s]: %d\n", name, sd.Mode(), sd.Hits())
	}
	fmt.Fprintf(s.output, "Total: %d (%d active steps)\n", s.td.TotalHits(), s.td.ActiveStepCount())
}

// showHelp displays available commands.
func (s *Shell) showHelp() {
	help := `
Debug Commands:
  continue, c      Resume the transformation
  abort, a         Stop the transformation
  rows, r          Show the captured rows
  query <jq>, q    Run a jq expression over the captured rows
  hits             Show hit counters
  help, h, ?       Show this help message

Press Ctrl+C to stop the transformation
`
	fmt.Fprintln(s.output, help)
}
