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

// Package debug previews and breakpoints rows inside a running transformation.
//
// A TransDebug holds one StepDebug per step the operator wants to watch.
// Attaching it to a transformation installs a row observer on every copy of
// each watched step; the observer runs the capture state machine for each
// row the step writes.
//
// # Preview
//
// A preview StepDebug keeps the first N rows in emission order. Once the
// buffer is full the next row pauses the transformation and notifies the
// breakpoint listeners once, so the caller can show a stable snapshot.
//
// # Breakpoints
//
// A breakpoint StepDebug keeps a sliding window of the last N rows, newest
// first (N = 0 keeps only the latest row), and pauses the transformation
// whenever its condition holds for a row.
//
// # Concurrency
//
// Copies of the same step share one StepDebug. Each StepDebug is guarded by
// its own mutex, held for the whole capture of a row including the listener
// fan-out, so listeners always see a buffer consistent with the hit. There
// is no lock shared between steps.
//
// # Example Usage
//
//	td := debug.New(trans)
//	_ = td.AddStep("orders", debug.NewBreakpoint(10, cond))
//	td.AddBreakpointListenerToAll(debug.BreakpointListenerFunc(
//		func(td *debug.TransDebug, sd *debug.StepDebug, buf *debug.RowBuffer) error {
//			fmt.Println("hit on", sd.Step(), "rows:", buf.Len())
//			return nil
//		}))
//
//	if err := trans.Prepare(); err != nil {
//		return err
//	}
//	if err := td.Attach(trans); err != nil {
//		return err
//	}
//	return trans.Run(ctx)
package debug
