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

package shared

import (
	"fmt"
	"io"
	"os"

	pkgerrors "github.com/tombee/sluice/pkg/errors"
)

// Exit codes for sluice commands
const (
	ExitSuccess               = 0
	ExitExecutionFailed       = 1
	ExitInvalidTransformation = 2
	ExitInvalidDebugConfig    = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for transformation run failures
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitExecutionFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidTransformationError creates an error for unreadable or invalid
// transformation files
func NewInvalidTransformationError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidTransformation,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidDebugConfigError creates an error for malformed preview and
// breakpoint flags
func NewInvalidDebugConfigError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidDebugConfig,
		Message: msg,
		Cause:   cause,
	}
}

// ExitCodeFor returns the exit code for err
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if pkgerrors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitExecutionFailed
}

// PrintError writes err and any suggestion it carries to w
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, RenderError(err.Error()))

	var validationErr *pkgerrors.ValidationError
	if pkgerrors.As(err, &validationErr) && validationErr.Suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", validationErr.Suggestion)
	}
}

// HandleExitError prints err and exits with the appropriate code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCodeFor(err))
}
