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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/sluice/pkg/errors"
)

func TestLoadDefinition(t *testing.T) {
	def, err := LoadDefinition(filepath.Join("testdata", "orders.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "orders", def.Name)
	assert.Equal(t, 10, def.BufferSize)
	require.Len(t, def.Steps, 4)
	assert.Equal(t, StepTypeGenerate, def.Steps[0].Type)
	assert.Equal(t, 20, def.Steps[0].Rows)
	assert.Equal(t, 2, def.Step("paid").Copies)
	assert.Equal(t, 1, def.Step("sink").Copies, "copies default to 1")
	assert.Equal(t, []string{"large"}, def.inputs("paid"))
	assert.Equal(t, []string{"paid"}, def.outputs("large"))
	assert.Nil(t, def.Step("missing"))
}

func TestLoadDefinition_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDefinition(filepath.Join(t.TempDir(), "nope.yaml"))
		var cfgErr *errors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseDefinition([]byte("name: [unterminated"))
		var cfgErr *errors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestDefinition_Validate(t *testing.T) {
	gen := func(name string) StepDefinition {
		return StepDefinition{Name: name, Type: StepTypeGenerate, Rows: 1, Fields: []FieldDefinition{{Name: "n", Expr: "rownum"}}}
	}

	tests := []struct {
		name    string
		def     Definition
		wantErr string
	}{
		{
			name: "valid",
			def: Definition{
				Name:  "t",
				Steps: []StepDefinition{gen("a"), {Name: "b", Type: StepTypeDummy}},
				Hops:  []HopDefinition{{From: "a", To: "b"}},
			},
		},
		{
			name:    "missing name",
			def:     Definition{Steps: []StepDefinition{gen("a")}},
			wantErr: "transformation name is required",
		},
		{
			name:    "no steps",
			def:     Definition{Name: "t"},
			wantErr: "at least one step",
		},
		{
			name:    "duplicate step",
			def:     Definition{Name: "t", Steps: []StepDefinition{gen("a"), gen("a")}},
			wantErr: "duplicate step name: a",
		},
		{
			name:    "unknown type",
			def:     Definition{Name: "t", Steps: []StepDefinition{{Name: "a", Type: "sort"}}},
			wantErr: `unknown step type "sort"`,
		},
		{
			name:    "filter without condition",
			def:     Definition{Name: "t", Steps: []StepDefinition{{Name: "a", Type: StepTypeFilter}}},
			wantErr: "requires a condition",
		},
		{
			name:    "calc without fields",
			def:     Definition{Name: "t", Steps: []StepDefinition{{Name: "a", Type: StepTypeCalc}}},
			wantErr: "calc step has no fields",
		},
		{
			name: "field without expr",
			def: Definition{Name: "t", Steps: []StepDefinition{
				{Name: "a", Type: StepTypeGenerate, Fields: []FieldDefinition{{Name: "x"}}},
			}},
			wantErr: "field x has no expr",
		},
		{
			name: "unknown field type",
			def: Definition{Name: "t", Steps: []StepDefinition{
				{Name: "a", Type: StepTypeGenerate, Fields: []FieldDefinition{{Name: "x", Type: "blob", Expr: "1"}}},
			}},
			wantErr: `unknown value type "blob"`,
		},
		{
			name:    "negative copies",
			def:     Definition{Name: "t", Steps: []StepDefinition{{Name: "a", Type: StepTypeDummy, Copies: -1}}},
			wantErr: "copies must be at least 1",
		},
		{
			name: "hop to unknown step",
			def: Definition{
				Name:  "t",
				Steps: []StepDefinition{gen("a")},
				Hops:  []HopDefinition{{From: "a", To: "b"}},
			},
			wantErr: `unknown step "b"`,
		},
		{
			name: "hop into generate",
			def: Definition{
				Name:  "t",
				Steps: []StepDefinition{gen("a"), gen("b")},
				Hops:  []HopDefinition{{From: "a", To: "b"}},
			},
			wantErr: "generate step b cannot have an input",
		},
		{
			name: "cycle",
			def: Definition{
				Name: "t",
				Steps: []StepDefinition{
					gen("a"),
					{Name: "b", Type: StepTypeDummy},
					{Name: "c", Type: StepTypeDummy},
				},
				Hops: []HopDefinition{{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "c", To: "b"}},
			},
			wantErr: "cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.def.ApplyDefaults()
			err := tt.def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, "validation", errors.TypeOf(err))
		})
	}
}
