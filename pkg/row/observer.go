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

package row

// Observer receives every row a step writes, synchronously on the step's
// goroutine and before the row is handed to downstream steps. Returning an
// error fails the emitting step copy.
type Observer interface {
	RowWritten(meta *Meta, r Row) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(meta *Meta, r Row) error

// RowWritten implements Observer.
func (f ObserverFunc) RowWritten(meta *Meta, r Row) error {
	return f(meta, r)
}

// Emitter is a running step copy that row observers can be installed on.
type Emitter interface {
	AddRowObserver(o Observer)
}
