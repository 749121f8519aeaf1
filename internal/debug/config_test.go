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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/sluice/internal/log"
	"github.com/tombee/sluice/pkg/condition"
	"github.com/tombee/sluice/pkg/errors"
)

func TestParsePreview(t *testing.T) {
	tests := []struct {
		input   string
		want    StepConfig
		wantErr bool
	}{
		{input: "orders", want: StepConfig{Step: "orders", Mode: ModePreview, Rows: DefaultPreviewRows}},
		{input: "orders:25", want: StepConfig{Step: "orders", Mode: ModePreview, Rows: 25}},
		{input: " orders : 0", want: StepConfig{Step: "orders", Mode: ModePreview, Rows: 0}},
		{input: "", wantErr: true},
		{input: ":5", wantErr: true},
		{input: "orders:x", wantErr: true},
		{input: "orders:-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePreview(tt.input)
			if tt.wantErr {
				var validationErr *errors.ValidationError
				assert.ErrorAs(t, err, &validationErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBreakpoint(t *testing.T) {
	tests := []struct {
		input   string
		want    StepConfig
		wantErr bool
	}{
		{
			input: "orders:5:amount > 100",
			want:  StepConfig{Step: "orders", Mode: ModeBreakpoint, Rows: 5, Condition: "amount > 100"},
		},
		{
			input: `orders:0:status == "a:b"`,
			want:  StepConfig{Step: "orders", Mode: ModeBreakpoint, Rows: 0, Condition: `status == "a:b"`},
		},
		{input: "orders:5", wantErr: true},
		{input: ":5:true", wantErr: true},
		{input: "orders:many:true", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBreakpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	ft := newFakeTrans(map[string]int{"orders": 1, "paid": 1})

	tests := []struct {
		name    string
		steps   []StepConfig
		wantErr []string
	}{
		{name: "empty"},
		{
			name: "valid",
			steps: []StepConfig{
				{Step: "orders", Mode: ModePreview, Rows: 5},
				{Step: "paid", Mode: ModeBreakpoint, Rows: 1, Condition: "true"},
			},
		},
		{
			name:    "unknown step",
			steps:   []StepConfig{{Step: "nope", Mode: ModePreview, Rows: 5}},
			wantErr: []string{"step not found: nope"},
		},
		{
			name: "duplicate and missing condition",
			steps: []StepConfig{
				{Step: "orders", Mode: ModePreview, Rows: 5},
				{Step: "orders", Mode: ModePreview, Rows: 1},
				{Step: "paid", Mode: ModeBreakpoint, Rows: 1},
			},
			wantErr: []string{"configured more than once", "breakpoint has no condition"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Steps: tt.steps}
			err := cfg.Validate(ft)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestConfig_ValidateNilMeta(t *testing.T) {
	var empty Config
	assert.NoError(t, empty.Validate(nil), "an empty configuration needs no transformation")

	cfg := &Config{Steps: []StepConfig{{Step: "orders", Mode: ModePreview, Rows: 5}}}
	var validationErr *errors.ValidationError

	err := cfg.Validate(nil)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "transformation", validationErr.Field)

	td, err := cfg.Build(nil, nil, WithLogger(log.Discard()))
	require.ErrorAs(t, err, &validationErr)
	assert.Nil(t, td)
}

func TestConfig_Build(t *testing.T) {
	ft := newFakeTrans(map[string]int{"orders": 1, "paid": 1})

	var cfg Config
	assert.False(t, cfg.Enabled())
	cfg.Add(StepConfig{Step: "orders", Mode: ModePreview, Rows: 3})
	cfg.Add(StepConfig{Step: "paid", Mode: ModeBreakpoint, Rows: 2, Condition: "col0 > 1"})
	assert.True(t, cfg.Enabled())

	eval := condition.NewEvaluator()
	td, err := cfg.Build(ft, eval, WithLogger(log.Discard()))
	require.NoError(t, err)

	assert.Equal(t, []string{"orders", "paid"}, td.Steps())
	assert.Equal(t, 2, td.ActiveStepCount())
	assert.Same(t, Meta(ft), td.Meta())

	paid := td.StepDebug("paid")
	assert.Equal(t, ModeBreakpoint, paid.Mode())
	assert.Equal(t, 2, paid.RowCount())
	assert.Equal(t, 1, eval.CacheSize())
}

func TestConfig_BuildErrors(t *testing.T) {
	ft := newFakeTrans(map[string]int{"orders": 1})

	t.Run("invalid condition", func(t *testing.T) {
		cfg := &Config{Steps: []StepConfig{{Step: "orders", Mode: ModeBreakpoint, Rows: 1, Condition: "col0 >"}}}
		_, err := cfg.Build(ft, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "breakpoint on step orders")
	})

	t.Run("unknown step", func(t *testing.T) {
		cfg := &Config{Steps: []StepConfig{{Step: "ghost", Mode: ModePreview, Rows: 1}}}
		_, err := cfg.Build(ft, nil)
		var notFound *errors.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("nil config", func(t *testing.T) {
		var cfg *Config
		td, err := cfg.Build(ft, nil, WithLogger(log.Discard()))
		require.NoError(t, err)
		assert.Empty(t, td.Steps())
	})
}
