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

// Package engine runs transformations defined in YAML.
//
// A transformation is a directed acyclic graph of steps connected by hops.
// Each step runs in one or more parallel copies, every copy on its own
// goroutine. Rows written by a step copy are handed to the row observers
// installed on it and then to every downstream step.
//
// The engine can be paused and resumed between rows, which is what the
// debugger relies on to hold a transformation at a breakpoint.
package engine
