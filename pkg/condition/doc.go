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

// Package condition compiles and evaluates row predicates.
//
// Predicates are expr-lang expressions evaluated against a single row. Each
// column is exposed as a variable named after the column; the whole row is
// also available as the map "row" and the positional slice "fields":
//
//	amount > 100 && country == "NL"
//	row["order id"] != nil
//	fields[0] == 7
//	has(tags, "vip") || length(name) > 20
//
// An empty expression is a valid, empty condition that always evaluates to
// true.
package condition
