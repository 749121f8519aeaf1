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

package errors_test

import (
	"errors"
	"fmt"
	"testing"

	sluiceerrors "github.com/tombee/sluice/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *sluiceerrors.ValidationError
		wantMsg string
	}{
		{
			name: "with field",
			err: &sluiceerrors.ValidationError{
				Field:      "steps[0].copies",
				Message:    "must be at least 1",
				Suggestion: "remove the field to use a single copy",
			},
			wantMsg: "validation failed on steps[0].copies: must be at least 1",
		},
		{
			name: "without field",
			err: &sluiceerrors.ValidationError{
				Message: "transformation has no steps",
			},
			wantMsg: "validation failed: transformation has no steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestNotFoundError_Error(t *testing.T) {
	err := &sluiceerrors.NotFoundError{Resource: "step", ID: "lookup"}
	if got, want := err.Error(), "step not found: lookup"; got != want {
		t.Errorf("NotFoundError.Error() = %q, want %q", got, want)
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("yaml: line 3: mapping values are not allowed")
	err := &sluiceerrors.ConfigError{Key: "definition", Reason: "invalid YAML", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if got, want := err.Error(), "config error at definition: invalid YAML"; got != want {
		t.Errorf("ConfigError.Error() = %q, want %q", got, want)
	}
}

func TestCaptureError(t *testing.T) {
	cause := errors.New("row has 2 values, schema has 3 columns")
	err := fmt.Errorf("step emit: %w", &sluiceerrors.CaptureError{
		Step:  "lookup",
		Op:    sluiceerrors.CaptureOpClone,
		Cause: cause,
	})

	var captureErr *sluiceerrors.CaptureError
	if !errors.As(err, &captureErr) {
		t.Fatal("errors.As should find the CaptureError")
	}
	if captureErr.Op != sluiceerrors.CaptureOpClone {
		t.Errorf("Op = %q, want %q", captureErr.Op, sluiceerrors.CaptureOpClone)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through the CaptureError")
	}
	want := "debug capture on step lookup failed during clone: row has 2 values, schema has 3 columns"
	if captureErr.Error() != want {
		t.Errorf("Error() = %q, want %q", captureErr.Error(), want)
	}
}

func TestListenerError_Error(t *testing.T) {
	cause := errors.New("ui disconnected")
	tests := []struct {
		name string
		err  *sluiceerrors.ListenerError
		want string
	}{
		{
			name: "single failure",
			err:  &sluiceerrors.ListenerError{Step: "filter", Failed: 1, Cause: cause},
			want: "breakpoint listener failed on step filter: ui disconnected",
		},
		{
			name: "several failures",
			err:  &sluiceerrors.ListenerError{Step: "filter", Failed: 3, Cause: cause},
			want: "3 breakpoint listeners failed on step filter, first: ui disconnected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("errors.Is should find the cause")
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "internal"},
		{"validation", &sluiceerrors.ValidationError{Message: "bad"}, "validation"},
		{"wrapped listener", sluiceerrors.Wrap(&sluiceerrors.ListenerError{Step: "s", Failed: 1, Cause: errors.New("x")}, "run"), "listener"},
		{"capture", &sluiceerrors.CaptureError{Step: "s", Op: sluiceerrors.CaptureOpEvaluate, Cause: errors.New("x")}, "capture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sluiceerrors.TypeOf(tt.err); got != tt.want {
				t.Errorf("TypeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrap_Nil(t *testing.T) {
	if sluiceerrors.Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if sluiceerrors.Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestWrapf_PreservesChain(t *testing.T) {
	base := &sluiceerrors.NotFoundError{Resource: "step", ID: "x"}
	err := sluiceerrors.Wrapf(base, "attaching %s", "x")

	var nf *sluiceerrors.NotFoundError
	if !sluiceerrors.As(err, &nf) {
		t.Fatal("As should find NotFoundError")
	}
	if got, want := err.Error(), "attaching x: step not found: x"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
