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

// BreakpointListener is notified each time a step hits a breakpoint or
// fills its preview buffer.
//
// OnBreakpoint runs on the goroutine of the step copy that emitted the row,
// after the transformation was asked to pause, and while the StepDebug is
// locked: buf does not change until the listener returns. Listeners may call
// TransDebug aggregates and StepDebug.Hits, but must not call
// StepDebug.Snapshot on the same StepDebug.
//
// A returned error does not stop the remaining listeners; the first error is
// reported to the engine as a failure of the emitting step copy.
type BreakpointListener interface {
	OnBreakpoint(td *TransDebug, sd *StepDebug, buf *RowBuffer) error
}

// BreakpointListenerFunc adapts a function to the BreakpointListener
// interface.
type BreakpointListenerFunc func(td *TransDebug, sd *StepDebug, buf *RowBuffer) error

// OnBreakpoint implements BreakpointListener.
func (f BreakpointListenerFunc) OnBreakpoint(td *TransDebug, sd *StepDebug, buf *RowBuffer) error {
	return f(td, sd, buf)
}
