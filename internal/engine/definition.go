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

package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/sluice/pkg/errors"
	"github.com/tombee/sluice/pkg/row"
)

// StepType identifies what a step does with rows.
type StepType string

const (
	// StepTypeGenerate produces rows from field expressions. It has no input.
	StepTypeGenerate StepType = "generate"

	// StepTypeFilter passes on the input rows for which its condition holds.
	StepTypeFilter StepType = "filter"

	// StepTypeCalc appends computed fields to each input row.
	StepTypeCalc StepType = "calc"

	// StepTypeDummy passes input rows on unchanged.
	StepTypeDummy StepType = "dummy"
)

// DefaultBufferSize is the capacity of each step input channel.
const DefaultBufferSize = 100

// Definition is a transformation loaded from YAML.
type Definition struct {
	// Name identifies the transformation
	Name string `yaml:"name"`

	// Description is optional human-readable text
	Description string `yaml:"description,omitempty"`

	// BufferSize is the row capacity of each step input channel
	BufferSize int `yaml:"buffer_size,omitempty"`

	// Steps are the steps of the transformation
	Steps []StepDefinition `yaml:"steps"`

	// Hops connect the output of one step to the input of another
	Hops []HopDefinition `yaml:"hops,omitempty"`
}

// StepDefinition describes one step.
type StepDefinition struct {
	// Name is unique within the transformation
	Name string `yaml:"name"`

	// Type is the step type
	Type StepType `yaml:"type"`

	// Copies is the number of parallel copies of the step (default 1)
	Copies int `yaml:"copies,omitempty"`

	// Rows is the number of rows a generate step produces over all copies
	Rows int `yaml:"rows,omitempty"`

	// RowsPerSecond throttles a generate step copy; zero means unthrottled
	RowsPerSecond float64 `yaml:"rows_per_second,omitempty"`

	// Fields are the columns produced by generate and calc steps
	Fields []FieldDefinition `yaml:"fields,omitempty"`

	// Condition is the predicate of a filter step
	Condition string `yaml:"condition,omitempty"`
}

// FieldDefinition is a computed column.
type FieldDefinition struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`

	// Expr is evaluated per row. Generate steps see rownum and copy,
	// calc steps see the input columns.
	Expr string `yaml:"expr"`
}

// HopDefinition connects two steps.
type HopDefinition struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadDefinition reads and parses a transformation definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    path,
			Reason: "cannot read transformation definition",
			Cause:  err,
		}
	}
	return ParseDefinition(data)
}

// ParseDefinition parses a transformation definition from YAML bytes.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &errors.ConfigError{
			Reason: "failed to parse transformation definition",
			Cause:  err,
		}
	}

	def.ApplyDefaults()

	if err := def.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid transformation definition")
	}
	return &def, nil
}

// ApplyDefaults fills in buffer size and step copies.
func (d *Definition) ApplyDefaults() {
	if d.BufferSize == 0 {
		d.BufferSize = DefaultBufferSize
	}
	for i := range d.Steps {
		if d.Steps[i].Copies == 0 {
			d.Steps[i].Copies = 1
		}
	}
}

// Step returns the named step definition, or nil.
func (d *Definition) Step(name string) *StepDefinition {
	for i := range d.Steps {
		if d.Steps[i].Name == name {
			return &d.Steps[i]
		}
	}
	return nil
}

// Validate checks the definition for structural errors.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &errors.ValidationError{
			Field:      "name",
			Message:    "transformation name is required",
			Suggestion: "add a descriptive name for the transformation",
		}
	}
	if d.BufferSize < 0 {
		return &errors.ValidationError{
			Field:   "buffer_size",
			Message: "buffer size must not be negative",
		}
	}
	if len(d.Steps) == 0 {
		return &errors.ValidationError{
			Field:      "steps",
			Message:    "transformation must have at least one step",
			Suggestion: "add a generate step to produce rows",
		}
	}

	names := make(map[string]bool, len(d.Steps))
	for i := range d.Steps {
		step := &d.Steps[i]
		if step.Name == "" {
			return &errors.ValidationError{
				Field:      fmt.Sprintf("steps[%d].name", i),
				Message:    "step name is required",
				Suggestion: "add a 'name' field to each step",
			}
		}
		if names[step.Name] {
			return &errors.ValidationError{
				Field:      "name",
				Message:    fmt.Sprintf("duplicate step name: %s", step.Name),
				Suggestion: "ensure each step has a unique name",
			}
		}
		names[step.Name] = true

		if err := step.Validate(); err != nil {
			return errors.Wrapf(err, "invalid step %s", step.Name)
		}
	}

	for i, hop := range d.Hops {
		for _, end := range []string{hop.From, hop.To} {
			if !names[end] {
				return &errors.ValidationError{
					Field:   fmt.Sprintf("hops[%d]", i),
					Message: fmt.Sprintf("hop references unknown step %q", end),
				}
			}
		}
		if d.Step(hop.To).Type == StepTypeGenerate {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("hops[%d]", i),
				Message: fmt.Sprintf("generate step %s cannot have an input", hop.To),
			}
		}
	}

	return d.checkAcyclic()
}

// Validate checks one step definition.
func (s *StepDefinition) Validate() error {
	if s.Copies < 1 {
		return &errors.ValidationError{
			Field:   "copies",
			Message: "copies must be at least 1",
		}
	}

	switch s.Type {
	case StepTypeGenerate:
		if s.Rows < 0 {
			return &errors.ValidationError{Field: "rows", Message: "rows must not be negative"}
		}
		if s.RowsPerSecond < 0 {
			return &errors.ValidationError{Field: "rows_per_second", Message: "rows_per_second must not be negative"}
		}
		return validateFields(s.Fields)
	case StepTypeCalc:
		if len(s.Fields) == 0 {
			return &errors.ValidationError{
				Field:      "fields",
				Message:    "calc step has no fields",
				Suggestion: "add at least one field with an expr",
			}
		}
		return validateFields(s.Fields)
	case StepTypeFilter:
		if strings.TrimSpace(s.Condition) == "" {
			return &errors.ValidationError{Field: "condition", Message: "filter step requires a condition"}
		}
		return nil
	case StepTypeDummy:
		return nil
	case "":
		return &errors.ValidationError{Field: "type", Message: "step type is required"}
	default:
		return &errors.ValidationError{
			Field:      "type",
			Message:    fmt.Sprintf("unknown step type %q", s.Type),
			Suggestion: "use one of generate, filter, calc, dummy",
		}
	}
}

func validateFields(fields []FieldDefinition) error {
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return &errors.ValidationError{Field: fmt.Sprintf("fields[%d].name", i), Message: "field name is required"}
		}
		if seen[f.Name] {
			return &errors.ValidationError{Field: "fields", Message: fmt.Sprintf("duplicate field name: %s", f.Name)}
		}
		seen[f.Name] = true
		if strings.TrimSpace(f.Expr) == "" {
			return &errors.ValidationError{Field: fmt.Sprintf("fields[%d].expr", i), Message: fmt.Sprintf("field %s has no expr", f.Name)}
		}
		if _, err := row.ParseValueType(f.Type); err != nil {
			return &errors.ValidationError{Field: fmt.Sprintf("fields[%d].type", i), Message: err.Error()}
		}
	}
	return nil
}

// inputs returns the names of the steps feeding step.
func (d *Definition) inputs(step string) []string {
	var out []string
	for _, hop := range d.Hops {
		if hop.To == step {
			out = append(out, hop.From)
		}
	}
	return out
}

// outputs returns the names of the steps step feeds, in hop order.
func (d *Definition) outputs(step string) []string {
	var out []string
	for _, hop := range d.Hops {
		if hop.From == step {
			out = append(out, hop.To)
		}
	}
	return out
}

func (d *Definition) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(d.Steps))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return &errors.ValidationError{
				Field:   "hops",
				Message: fmt.Sprintf("hops form a cycle through step %s", name),
			}
		case done:
			return nil
		}
		state[name] = visiting
		for _, next := range d.outputs(name) {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, step := range d.Steps {
		if err := visit(step.Name); err != nil {
			return err
		}
	}
	return nil
}
