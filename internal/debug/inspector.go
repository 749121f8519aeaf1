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
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tombee/sluice/internal/jq"
	"github.com/tombee/sluice/pkg/row"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// Inspector provides utilities for inspecting captured rows.
type Inspector struct {
	meta *row.Meta
	rows []row.Row
}

// NewInspector creates a new inspector over rows described by meta.
func NewInspector(meta *row.Meta, rows []row.Row) *Inspector {
	return &Inspector{
		meta: meta,
		rows: rows,
	}
}

// Len returns the number of rows.
func (i *Inspector) Len() int {
	return len(i.rows)
}

// Records returns each row as a column name to value map.
func (i *Inspector) Records() []map[string]any {
	out := make([]map[string]any, 0, len(i.rows))
	for _, r := range i.rows {
		if i.meta == nil {
			out = append(out, map[string]any{})
			continue
		}
		out = append(out, i.meta.ToMap(r))
	}
	return out
}

// Get retrieves a value by row index and column name.
func (i *Inspector) Get(index int, column string) (any, bool) {
	if i.meta == nil || index < 0 || index >= len(i.rows) {
		return nil, false
	}
	col := i.meta.IndexOf(column)
	if col < 0 || col >= len(i.rows[index]) {
		return nil, false
	}
	return i.rows[index][col], true
}

// Format formats a value for display.
func (i *Inspector) Format(value any) (string, error) {
	bytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format value: %w", err)
	}
	return string(bytes), nil
}

// FormatRecords formats all rows as JSON.
func (i *Inspector) FormatRecords() (string, error) {
	return i.Format(i.Records())
}

// Table renders the rows as a table with a leading index column.
func (i *Inspector) Table() string {
	if i.meta == nil || len(i.rows) == 0 {
		return "(no rows)"
	}

	headers := append([]string{"#"}, i.meta.Names()...)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for idx, r := range i.rows {
		cells := make([]string, 0, len(headers))
		cells = append(cells, strconv.Itoa(idx))
		for _, v := range r {
			cells = append(cells, formatCell(v))
		}
		t.Row(cells...)
	}
	return t.String()
}

// Query runs a jq expression over Records.
func (i *Inspector) Query(ctx context.Context, exec *jq.Executor, expression string) (any, error) {
	return exec.Execute(ctx, expression, i.Records())
}

// Summary returns the column names and types of the rows.
func (i *Inspector) Summary() string {
	if i.meta == nil {
		return "  (no schema)\n"
	}
	var b strings.Builder
	for _, col := range i.meta.Columns() {
		fmt.Fprintf(&b, "  %s: %s\n", col.Name, col.Type)
	}
	return b.String()
}

func formatCell(v any) string {
	if v == nil {
		return "<null>"
	}
	return fmt.Sprint(v)
}
