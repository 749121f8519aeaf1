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
	"fmt"
	"strconv"
	"strings"

	"github.com/tombee/sluice/pkg/condition"
	"github.com/tombee/sluice/pkg/errors"
)

// DefaultPreviewRows is the preview size used when a preview flag names no
// row count.
const DefaultPreviewRows = 10

// StepConfig is the debug configuration of one step as given on the command
// line.
type StepConfig struct {
	Step      string
	Mode      Mode
	Rows      int
	Condition string
}

// String renders the configuration in flag syntax.
func (c StepConfig) String() string {
	if c.Mode == ModeBreakpoint {
		return fmt.Sprintf("%s:%d:%s", c.Step, c.Rows, c.Condition)
	}
	return fmt.Sprintf("%s:%d", c.Step, c.Rows)
}

// Config holds the debug configuration of a transformation run.
type Config struct {
	Steps []StepConfig
}

// ParsePreview parses a preview flag of the form "step[:rows]".
func ParsePreview(s string) (StepConfig, error) {
	step, rowsStr, hasRows := strings.Cut(s, ":")
	step = strings.TrimSpace(step)
	if step == "" {
		return StepConfig{}, &errors.ValidationError{
			Field:      "preview",
			Message:    fmt.Sprintf("missing step name in %q", s),
			Suggestion: "use --preview step[:rows]",
		}
	}

	rows := DefaultPreviewRows
	if hasRows {
		n, err := parseRows("preview", rowsStr)
		if err != nil {
			return StepConfig{}, err
		}
		rows = n
	}
	return StepConfig{Step: step, Mode: ModePreview, Rows: rows}, nil
}

// ParseBreakpoint parses a breakpoint flag of the form
// "step:rows:condition". The condition may itself contain colons.
func ParseBreakpoint(s string) (StepConfig, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
		return StepConfig{}, &errors.ValidationError{
			Field:      "breakpoint",
			Message:    fmt.Sprintf("malformed breakpoint %q", s),
			Suggestion: "use --breakpoint step:rows:condition, e.g. orders:5:amount > 100",
		}
	}

	rows, err := parseRows("breakpoint", parts[1])
	if err != nil {
		return StepConfig{}, err
	}
	return StepConfig{
		Step:      strings.TrimSpace(parts[0]),
		Mode:      ModeBreakpoint,
		Rows:      rows,
		Condition: strings.TrimSpace(parts[2]),
	}, nil
}

func parseRows(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, &errors.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("row count %q is not a non-negative integer", s),
		}
	}
	return n, nil
}

// Add appends a step configuration.
func (c *Config) Add(sc StepConfig) {
	c.Steps = append(c.Steps, sc)
}

// Enabled reports whether any step is configured.
func (c *Config) Enabled() bool {
	return c != nil && len(c.Steps) > 0
}

// Validate checks the configuration against the transformation: every step
// must exist and be configured once, and breakpoints need a condition.
func (c *Config) Validate(meta Meta) error {
	if !c.Enabled() {
		return nil
	}
	if meta == nil {
		return &errors.ValidationError{Field: "transformation", Message: "transformation is nil"}
	}

	seen := make(map[string]bool, len(c.Steps))
	var errs []error
	for _, sc := range c.Steps {
		switch {
		case !meta.HasStep(sc.Step):
			errs = append(errs, &errors.NotFoundError{Resource: "step", ID: sc.Step})
		case seen[sc.Step]:
			errs = append(errs, &errors.ValidationError{
				Field:   sc.Step,
				Message: "step is configured more than once",
			})
		case sc.Mode == ModeBreakpoint && sc.Condition == "":
			errs = append(errs, &errors.ValidationError{
				Field:   sc.Step,
				Message: "breakpoint has no condition",
			})
		}
		seen[sc.Step] = true
	}
	return errors.Join(errs...)
}

// Build validates the configuration and compiles it into a TransDebug.
func (c *Config) Build(meta Meta, eval *condition.Evaluator, opts ...Option) (*TransDebug, error) {
	if err := c.Validate(meta); err != nil {
		return nil, err
	}
	if eval == nil {
		eval = condition.NewEvaluator()
	}

	td := New(meta, opts...)
	if c == nil {
		return td, nil
	}
	for _, sc := range c.Steps {
		var sd *StepDebug
		switch sc.Mode {
		case ModeBreakpoint:
			cond, err := eval.Compile(sc.Condition)
			if err != nil {
				return nil, errors.Wrapf(err, "breakpoint on step %s", sc.Step)
			}
			sd = NewBreakpoint(sc.Rows, cond)
		default:
			sd = NewStepDebug(sc.Mode, sc.Rows, nil)
		}

		if err := td.AddStep(sc.Step, sd); err != nil {
			return nil, err
		}
	}
	return td, nil
}
