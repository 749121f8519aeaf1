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
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/tombee/sluice/pkg/errors"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", pkgerrors.New("boom"), ExitExecutionFailed},
		{"execution", NewExecutionError("run failed", nil), ExitExecutionFailed},
		{"invalid transformation", NewInvalidTransformationError("bad file", nil), ExitInvalidTransformation},
		{"invalid debug config", NewInvalidDebugConfigError("bad flag", nil), ExitInvalidDebugConfig},
		{"wrapped", fmt.Errorf("context: %w", NewInvalidDebugConfigError("bad flag", nil)), ExitInvalidDebugConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestExitError(t *testing.T) {
	cause := pkgerrors.New("file missing")
	err := NewInvalidTransformationError("cannot load transformation", cause)

	assert.Equal(t, "cannot load transformation: file missing", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "no cause", (&ExitError{Message: "no cause"}).Error())
}

func TestPrintError(t *testing.T) {
	t.Run("with suggestion", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewInvalidDebugConfigError("invalid breakpoint", &pkgerrors.ValidationError{
			Field:      "breakpoint",
			Message:    "malformed breakpoint",
			Suggestion: "use --breakpoint step:rows:condition",
		})

		PrintError(&buf, err)
		assert.Contains(t, buf.String(), "invalid breakpoint")
		assert.Contains(t, buf.String(), "Suggestion: use --breakpoint step:rows:condition")
	})

	t.Run("without suggestion", func(t *testing.T) {
		var buf bytes.Buffer
		PrintError(&buf, pkgerrors.New("boom"))
		assert.Contains(t, buf.String(), "boom")
		assert.NotContains(t, buf.String(), "Suggestion")
	})

	t.Run("nil", func(t *testing.T) {
		var buf bytes.Buffer
		PrintError(&buf, nil)
		assert.Empty(t, buf.String())
	})
}
