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

// Package row describes the rows that flow between transformation steps.
//
// A Row is an ordered tuple of opaque cell values. A Meta describes the
// columns of a row and knows how to deep-copy a payload so that a consumer
// can keep a row after the producer reuses or mutates its slice.
package row

import (
	"fmt"
	"strings"

	"github.com/huandu/go-clone"
)

// ValueType is the declared type of a column.
type ValueType string

const (
	TypeAny     ValueType = "any"
	TypeString  ValueType = "string"
	TypeInteger ValueType = "integer"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeDate    ValueType = "date"
)

// ParseValueType converts a type name from a definition file. An empty name
// maps to TypeAny.
func ParseValueType(s string) (ValueType, error) {
	switch t := ValueType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TypeAny, nil
	case TypeAny, TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeDate:
		return t, nil
	default:
		return "", fmt.Errorf("unknown value type %q", s)
	}
}

// Column describes one position of a row.
type Column struct {
	Name string
	Type ValueType
}

// Row is an ordered sequence of cell values matching a Meta.
type Row []any

// Meta is the schema handle of a row. It is immutable once built and may be
// shared between goroutines.
type Meta struct {
	columns []Column
	index   map[string]int
}

// NewMeta builds a Meta from the given columns. When two columns share a
// name, lookups by name resolve to the first one.
func NewMeta(columns ...Column) *Meta {
	m := &Meta{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	copy(m.columns, columns)
	for i, c := range m.columns {
		if c.Type == "" {
			m.columns[i].Type = TypeAny
		}
		if _, exists := m.index[c.Name]; !exists {
			m.index[c.Name] = i
		}
	}
	return m
}

// Len returns the number of columns.
func (m *Meta) Len() int {
	return len(m.columns)
}

// Columns returns a copy of the column descriptors.
func (m *Meta) Columns() []Column {
	out := make([]Column, len(m.columns))
	copy(out, m.columns)
	return out
}

// Names returns the column names in order.
func (m *Meta) Names() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.Name
	}
	return names
}

// IndexOf returns the position of the named column or -1.
func (m *Meta) IndexOf(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	return -1
}

// With returns a new Meta with the given columns appended.
func (m *Meta) With(columns ...Column) *Meta {
	all := make([]Column, 0, len(m.columns)+len(columns))
	all = append(all, m.columns...)
	all = append(all, columns...)
	return NewMeta(all...)
}

// CloneRow deep-copies r. The copy shares no mutable memory with r, so later
// writes by the producer are invisible to the holder of the clone.
func (m *Meta) CloneRow(r Row) (Row, error) {
	if len(r) != len(m.columns) {
		return nil, fmt.Errorf("row has %d values, schema has %d columns", len(r), len(m.columns))
	}
	if r == nil {
		return Row{}, nil
	}
	v := clone.Clone(r)
	cloned, ok := v.(Row)
	if !ok {
		return nil, fmt.Errorf("clone of row returned %T", v)
	}
	return cloned, nil
}

// ToMap returns the row keyed by column name. Later duplicate names do not
// overwrite earlier ones.
func (m *Meta) ToMap(r Row) map[string]any {
	out := make(map[string]any, len(m.columns))
	for i, c := range m.columns {
		if i >= len(r) {
			break
		}
		if _, exists := out[c.Name]; !exists {
			out[c.Name] = r[i]
		}
	}
	return out
}

// String renders the schema as "name:type, ...".
func (m *Meta) String() string {
	parts := make([]string, len(m.columns))
	for i, c := range m.columns {
		parts[i] = c.Name + ":" + string(c.Type)
	}
	return strings.Join(parts, ", ")
}
