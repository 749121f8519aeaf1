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

package errors

import (
	"fmt"
)

// ValidationError represents user input validation failures.
// Use this for invalid transformation definitions, malformed debug flags,
// or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements ErrorClassifier.
func (e *ValidationError) IsRetryable() bool { return false }

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "step", "transformation", "column")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrorType implements ErrorClassifier.
func (e *NotFoundError) ErrorType() string { return "not_found" }

// IsRetryable implements ErrorClassifier.
func (e *NotFoundError) IsRetryable() bool { return false }

// ConfigError represents configuration problems.
// Use this for unreadable definition files, unparseable YAML, or invalid
// environment settings.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "steps[2].copies")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return "config" }

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool { return false }

// Capture operations reported by CaptureError.
const (
	CaptureOpClone    = "clone"
	CaptureOpEvaluate = "evaluate"
)

// CaptureError wraps a failure raised while a debugger captured a row
// emitted by a step: either cloning the payload or evaluating the
// breakpoint condition against it.
type CaptureError struct {
	// Step is the name of the step whose row was being captured
	Step string

	// Op is the failing operation (CaptureOpClone or CaptureOpEvaluate)
	Op string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("debug capture on step %s failed during %s: %v", e.Step, e.Op, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CaptureError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *CaptureError) ErrorType() string { return "capture" }

// IsRetryable implements ErrorClassifier.
func (e *CaptureError) IsRetryable() bool { return false }

// ListenerError reports that one or more breakpoint listeners failed while
// being notified of a hit. The hit itself was still counted and every
// listener was attempted.
type ListenerError struct {
	// Step is the name of the step that hit the breakpoint
	Step string

	// Failed is the number of listeners that returned an error or panicked
	Failed int

	// Cause is the first listener error, in registration order
	Cause error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	if e.Failed > 1 {
		return fmt.Sprintf("%d breakpoint listeners failed on step %s, first: %v", e.Failed, e.Step, e.Cause)
	}
	return fmt.Sprintf("breakpoint listener failed on step %s: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ListenerError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ListenerError) ErrorType() string { return "listener" }

// IsRetryable implements ErrorClassifier.
func (e *ListenerError) IsRetryable() bool { return false }
