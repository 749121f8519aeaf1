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
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tombee/sluice/pkg/errors"
	"github.com/tombee/sluice/pkg/row"
)

// Mode selects what a StepDebug does with the rows of its step.
type Mode int

const (
	// ModeInactive ignores every row.
	ModeInactive Mode = iota

	// ModePreview keeps the first RowCount rows, then pauses.
	ModePreview

	// ModeBreakpoint keeps the last RowCount rows and pauses whenever the
	// condition holds.
	ModeBreakpoint
)

// String returns the mode name used in flags, logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModePreview:
		return "preview"
	case ModeBreakpoint:
		return "breakpoint"
	default:
		return "inactive"
	}
}

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "preview":
		return ModePreview, nil
	case "breakpoint":
		return ModeBreakpoint, nil
	case "inactive", "":
		return ModeInactive, nil
	default:
		return ModeInactive, fmt.Errorf("unknown debug mode %q", s)
	}
}

// Condition is a row predicate. Evaluate must not modify the row.
type Condition interface {
	Evaluate(meta *row.Meta, r row.Row) (bool, error)
	IsEmpty() bool
}

// StepDebug is the debug configuration and capture state of one step.
//
// Mode, row count and condition are fixed at construction. The buffer and
// hit counter are only changed by the capture state machine.
type StepDebug struct {
	step      string
	mode      Mode
	rowCount  int
	condition Condition

	// mu is held for an entire row capture, listener fan-out included.
	mu     sync.Mutex
	buffer RowBuffer

	hits atomic.Int64

	listenersMu sync.Mutex
	listeners   []BreakpointListener
}

// NewStepDebug creates a StepDebug. A negative rowCount is treated as 0. A
// nil condition (including a typed nil pointer) disables breakpoint capture.
func NewStepDebug(mode Mode, rowCount int, cond Condition) *StepDebug {
	if rowCount < 0 {
		rowCount = 0
	}
	if isNilCondition(cond) {
		cond = nil
	}

	capacity := rowCount
	if mode == ModeBreakpoint {
		// prepend happens before the oldest row is dropped
		capacity = rowCount + 1
	}

	return &StepDebug{
		mode:      mode,
		rowCount:  rowCount,
		condition: cond,
		buffer:    newRowBuffer(capacity),
	}
}

// NewPreview creates a StepDebug that previews the first rowCount rows.
func NewPreview(rowCount int) *StepDebug {
	return NewStepDebug(ModePreview, rowCount, nil)
}

// NewBreakpoint creates a StepDebug that pauses when cond holds, keeping the
// last rowCount rows.
func NewBreakpoint(rowCount int, cond Condition) *StepDebug {
	return NewStepDebug(ModeBreakpoint, rowCount, cond)
}

func isNilCondition(cond Condition) bool {
	if cond == nil {
		return true
	}
	v := reflect.ValueOf(cond)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Func, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// Step returns the name of the step this StepDebug is registered for.
func (s *StepDebug) Step() string {
	return s.step
}

// Mode returns the debug mode.
func (s *StepDebug) Mode() Mode {
	return s.mode
}

// RowCount returns the buffer capacity.
func (s *StepDebug) RowCount() int {
	return s.rowCount
}

// Condition returns the breakpoint condition, or nil.
func (s *StepDebug) Condition() Condition {
	return s.condition
}

// IsReadingFirstRows reports whether the step is in preview mode.
func (s *StepDebug) IsReadingFirstRows() bool {
	return s.mode == ModePreview
}

// IsPausingOnBreakpoint reports whether the step is in breakpoint mode.
func (s *StepDebug) IsPausingOnBreakpoint() bool {
	return s.mode == ModeBreakpoint
}

// Hits returns how many times this step paused the transformation and
// notified the listeners.
func (s *StepDebug) Hits() int64 {
	return s.hits.Load()
}

// isActive reports whether the step contributes to ActiveStepCount.
func (s *StepDebug) isActive() bool {
	switch s.mode {
	case ModePreview:
		return s.rowCount > 0
	case ModeBreakpoint:
		return s.condition != nil && !s.condition.IsEmpty()
	default:
		return false
	}
}

// Snapshot returns the schema and rows currently buffered. It must not be
// called from a BreakpointListener of the same StepDebug.
func (s *StepDebug) Snapshot() (*row.Meta, []row.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Meta(), s.buffer.Rows()
}

// AddBreakpointListener registers l. Listeners are notified in registration
// order; registering the same listener twice notifies it twice.
func (s *StepDebug) AddBreakpointListener(l BreakpointListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// fireBreakpointListeners counts a hit and notifies every listener. The
// caller must hold s.mu. Listener errors and panics are collected; the first
// one is returned as a ListenerError once all listeners have run.
func (s *StepDebug) fireBreakpointListeners(owner *TransDebug) error {
	s.hits.Add(1)

	s.listenersMu.Lock()
	listeners := slices.Clone(s.listeners)
	s.listenersMu.Unlock()

	var first error
	failed := 0
	for _, l := range listeners {
		if err := notify(l, owner, s, &s.buffer); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}

	if failed > 0 {
		return &errors.ListenerError{Step: s.step, Failed: failed, Cause: first}
	}
	return nil
}

func notify(l BreakpointListener, owner *TransDebug, s *StepDebug, buf *RowBuffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("breakpoint listener panicked: %v", r)
		}
	}()
	return l.OnBreakpoint(owner, s, buf)
}
