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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombee/sluice/pkg/errors"
	"github.com/tombee/sluice/pkg/row"
)

func orderMeta() *row.Meta {
	return row.NewMeta(
		row.Column{Name: "id", Type: row.TypeInteger},
		row.Column{Name: "country", Type: row.TypeString},
		row.Column{Name: "amount", Type: row.TypeNumber},
		row.Column{Name: "tags"},
		row.Column{Name: "email", Type: row.TypeString},
	)
}

func TestExpression_Evaluate(t *testing.T) {
	meta := orderMeta()
	r := row.Row{7, "NL", 250.5, []any{"vip", "new"}, nil}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"integer equality", `id == 7`, true},
		{"integer inequality", `id != 7`, false},
		{"numeric comparison", `amount > 100`, true},
		{"mixed numeric comparison", `amount > id`, true},
		{"string and boolean logic", `country == "NL" && amount < 1000`, true},
		{"row map access", `row["country"] == "NL"`, true},
		{"positional access", `fields[0] == 7`, true},
		{"has on slice", `has(tags, "vip")`, true},
		{"has missing", `has(tags, "gold")`, false},
		{"length of string", `length(country) == 2`, true},
		{"isnull", `isnull(email)`, true},
		{"in operator", `"new" in tags`, true},
		{"undefined column is nil", `missing == nil`, true},
	}

	eval := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := eval.Compile(tt.expr)
			require.NoError(t, err)

			got, err := x.Evaluate(meta, r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpression_Empty(t *testing.T) {
	eval := NewEvaluator()

	for _, src := range []string{"", "   "} {
		x, err := eval.Compile(src)
		require.NoError(t, err)
		assert.True(t, x.IsEmpty())

		got, err := x.Evaluate(orderMeta(), row.Row{1, "NL", 1.0, nil, nil})
		require.NoError(t, err)
		assert.True(t, got, "empty condition evaluates to true")
	}

	var nilExpr *Expression
	assert.True(t, nilExpr.IsEmpty())
	assert.Equal(t, "", nilExpr.String())
}

func TestEvaluator_CompileError(t *testing.T) {
	eval := NewEvaluator()

	_, err := eval.Compile(`id ==`)
	require.Error(t, err)

	var validationErr *errors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "condition", validationErr.Field)
	assert.NotEmpty(t, validationErr.Suggestion)
}

func TestEvaluator_CompileRejectsNonBoolean(t *testing.T) {
	eval := NewEvaluator()

	_, err := eval.Compile(`1 + 2`)
	assert.Error(t, err)
}

func TestExpression_RuntimeError(t *testing.T) {
	eval := NewEvaluator()
	x, err := eval.Compile(`amount > 100`)
	require.NoError(t, err)

	_, err = x.Evaluate(orderMeta(), row.Row{1, "NL", "not a number", nil, nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `condition "amount > 100"`)
}

func TestEvaluator_Cache(t *testing.T) {
	eval := NewEvaluator()

	_, err := eval.Compile(`id == 1`)
	require.NoError(t, err)
	_, err = eval.Compile(`id == 1`)
	require.NoError(t, err)
	assert.Equal(t, 1, eval.CacheSize())

	_, err = eval.CompileValue(`id == 1`)
	require.NoError(t, err)
	assert.Equal(t, 2, eval.CacheSize(), "value and predicate programs are cached separately")
}

func TestEvaluator_ConcurrentCompile(t *testing.T) {
	eval := NewEvaluator()
	meta := orderMeta()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			x, err := eval.Compile(`id % 2 == 0`)
			if !assert.NoError(t, err) {
				return
			}
			got, err := x.Evaluate(meta, row.Row{id, "NL", 1.0, nil, nil})
			assert.NoError(t, err)
			assert.Equal(t, id%2 == 0, got)
		}(i)
	}
	wg.Wait()
}

func TestExpression_Value(t *testing.T) {
	eval := NewEvaluator()
	meta := orderMeta()

	x, err := eval.CompileValue(`amount * 2`)
	require.NoError(t, err)
	got, err := x.Value(meta, row.Row{1, "NL", 10.0, nil, nil})
	require.NoError(t, err)
	assert.Equal(t, 20.0, got)

	y, err := eval.CompileValue(`rownum * 10`)
	require.NoError(t, err)
	got, err = y.Run(map[string]any{"rownum": 3})
	require.NoError(t, err)
	assert.Equal(t, 30, got)

	_, err = eval.CompileValue("")
	assert.Error(t, err)
}
