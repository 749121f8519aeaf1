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

package condition

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/tombee/sluice/pkg/errors"
	"github.com/tombee/sluice/pkg/row"
)

// Evaluator compiles expressions and caches the compiled programs so that a
// transformation with many copies of a step compiles each expression once.
type Evaluator struct {
	cache map[string]*vm.Program
	mu    sync.RWMutex
}

// NewEvaluator creates a new expression evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Expression is a compiled expression. It is safe for concurrent use.
type Expression struct {
	source  string
	program *vm.Program
}

// Compile compiles a boolean row predicate. The empty string compiles to an
// empty condition.
func (e *Evaluator) Compile(source string) (*Expression, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return &Expression{}, nil
	}

	program, err := e.compile(source, true)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      "condition",
			Message:    fmt.Sprintf("failed to compile condition %q: %s", source, err.Error()),
			Suggestion: "use comparison operators (==, !=, <, >) and column names, e.g. amount > 100",
		}
	}
	return &Expression{source: source, program: program}, nil
}

// CompileValue compiles an expression that yields any value, such as a
// calculated field.
func (e *Evaluator) CompileValue(source string) (*Expression, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, &errors.ValidationError{
			Field:   "value",
			Message: "expression is empty",
		}
	}

	program, err := e.compile(source, false)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      "value",
			Message:    fmt.Sprintf("failed to compile expression %q: %s", source, err.Error()),
			Suggestion: "check expression syntax and ensure all referenced variables exist",
		}
	}
	return &Expression{source: source, program: program}, nil
}

// compile compiles an expression and caches the result.
func (e *Evaluator) compile(source string, asBool bool) (*vm.Program, error) {
	key := source
	if asBool {
		key = "bool:" + source
	}

	e.mu.RLock()
	if prog, ok := e.cache[key]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	env := make(map[string]interface{}, len(functions))
	for name, fn := range functions {
		env[name] = fn
	}

	opts := []expr.Option{
		expr.Env(env),
		// Columns are only known at runtime
		expr.AllowUndefinedVariables(),
	}
	if asBool {
		opts = append(opts, expr.AsBool())
	}

	prog, err := expr.Compile(source, opts...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[key] = prog
	e.mu.Unlock()

	return prog, nil
}

// CacheSize returns the number of cached programs.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// Evaluate evaluates the predicate against one row. An empty condition
// evaluates to true.
func (x *Expression) Evaluate(meta *row.Meta, r row.Row) (bool, error) {
	if x.IsEmpty() {
		return true, nil
	}

	result, err := expr.Run(x.program, Env(meta, r))
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", x.source, err)
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %T, want bool", x.source, result)
	}
	return b, nil
}

// Value evaluates the expression against one row and returns its result.
func (x *Expression) Value(meta *row.Meta, r row.Row) (any, error) {
	return x.Run(Env(meta, r))
}

// Run evaluates the expression against an arbitrary environment. The
// built-in functions are added unless env already defines those names.
func (x *Expression) Run(env map[string]any) (any, error) {
	if x.IsEmpty() {
		return nil, nil
	}
	merged := make(map[string]any, len(env)+len(functions))
	for name, fn := range functions {
		merged[name] = fn
	}
	for k, v := range env {
		merged[k] = v
	}
	result, err := expr.Run(x.program, merged)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", x.source, err)
	}
	return result, nil
}

// IsEmpty reports whether the condition has no expression.
func (x *Expression) IsEmpty() bool {
	return x == nil || x.program == nil
}

// String returns the expression source.
func (x *Expression) String() string {
	if x == nil {
		return ""
	}
	return x.source
}
