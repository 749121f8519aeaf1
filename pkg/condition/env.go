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
	"reflect"
	"strings"

	"github.com/tombee/sluice/pkg/row"
)

// Reserved environment names. They take precedence over columns of the same
// name.
const (
	RowVar    = "row"
	FieldsVar = "fields"
)

// Env builds the evaluation environment for one row.
func Env(meta *row.Meta, r row.Row) map[string]any {
	values := meta.ToMap(r)
	env := make(map[string]any, len(values)+len(functions)+2)
	for k, v := range values {
		env[k] = v
	}
	env[RowVar] = values
	env[FieldsVar] = []any(r)
	for name, fn := range functions {
		env[name] = fn
	}
	return env
}

// functions are available to every expression.
var functions = map[string]any{
	"has":    hasFunc,
	"length": lengthFunc,
	"isnull": isNullFunc,
}

// hasFunc checks if a collection contains an element, a map contains a key,
// or a string contains a substring.
// Usage: has(tags, "vip")
func hasFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("has requires exactly 2 arguments, got %d", len(args))
	}

	collection, target := args[0], args[1]
	if collection == nil {
		return false, nil
	}

	v := reflect.ValueOf(collection)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if reflect.DeepEqual(v.Index(i).Interface(), target) {
				return true, nil
			}
		}
		return false, nil

	case reflect.Map:
		key := reflect.ValueOf(target)
		if !key.IsValid() || !key.Type().AssignableTo(v.Type().Key()) {
			return false, nil
		}
		return v.MapIndex(key).IsValid(), nil

	case reflect.String:
		substr, ok := target.(string)
		if !ok || substr == "" {
			return false, nil
		}
		return strings.Contains(v.String(), substr), nil

	default:
		return false, nil
	}
}

// lengthFunc returns the length of a collection or string; nil has length 0.
// Usage: length(name) > 20
func lengthFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("length requires exactly 1 argument, got %d", len(args))
	}
	if args[0] == nil {
		return 0, nil
	}

	v := reflect.ValueOf(args[0])
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return v.Len(), nil
	default:
		return nil, fmt.Errorf("length: unsupported type %T", args[0])
	}
}

// isNullFunc reports whether a value is nil.
// Usage: isnull(email)
func isNullFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("isnull requires exactly 1 argument, got %d", len(args))
	}
	return args[0] == nil, nil
}
