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
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tombee/sluice/internal/log"
	"github.com/tombee/sluice/pkg/condition"
	"github.com/tombee/sluice/pkg/row"
)

// fakeEmitter is a step copy that tests drive directly.
type fakeEmitter struct {
	mu        sync.Mutex
	observers []row.Observer
}

func (e *fakeEmitter) AddRowObserver(o row.Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

func (e *fakeEmitter) write(meta *row.Meta, r row.Row) error {
	e.mu.Lock()
	observers := append([]row.Observer(nil), e.observers...)
	e.mu.Unlock()

	for _, o := range observers {
		if err := o.RowWritten(meta, r); err != nil {
			return err
		}
	}
	return nil
}

// fakeTrans records pause requests but never blocks writers.
type fakeTrans struct {
	name      string
	instances map[string][]*fakeEmitter

	paused  atomic.Bool
	stopped atomic.Bool
	pauses  atomic.Int64
}

func newFakeTrans(copies map[string]int) *fakeTrans {
	ft := &fakeTrans{name: "fake", instances: make(map[string][]*fakeEmitter)}
	for step, n := range copies {
		for i := 0; i < n; i++ {
			ft.instances[step] = append(ft.instances[step], &fakeEmitter{})
		}
	}
	return ft
}

func (ft *fakeTrans) Name() string { return ft.name }

func (ft *fakeTrans) HasStep(name string) bool {
	_, ok := ft.instances[name]
	return ok
}

func (ft *fakeTrans) FindStepInstances(step string) []row.Emitter {
	var out []row.Emitter
	for _, e := range ft.instances[step] {
		out = append(out, e)
	}
	return out
}

func (ft *fakeTrans) IsPaused() bool { return ft.paused.Load() }

func (ft *fakeTrans) PauseRunning() {
	ft.pauses.Add(1)
	ft.paused.Store(true)
}

func (ft *fakeTrans) ResumeRunning() { ft.paused.Store(false) }

func (ft *fakeTrans) Stop() { ft.stopped.Store(true) }

func (ft *fakeTrans) IsStopped() bool { return ft.stopped.Load() }

// emitter returns copy n of step.
func (ft *fakeTrans) emitter(step string, n int) *fakeEmitter {
	return ft.instances[step][n]
}

// funcCondition adapts a function to Condition.
type funcCondition func(meta *row.Meta, r row.Row) (bool, error)

func (f funcCondition) Evaluate(meta *row.Meta, r row.Row) (bool, error) { return f(meta, r) }
func (f funcCondition) IsEmpty() bool                                    { return false }

// recorder is a BreakpointListener that snapshots the buffer on every call.
type recorder struct {
	mu    sync.Mutex
	calls []recordedCall
	err   error
}

type recordedCall struct {
	step string
	hits int64
	meta *row.Meta
	rows []row.Row
}

func (r *recorder) OnBreakpoint(td *TransDebug, sd *StepDebug, buf *RowBuffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{step: sd.Step(), hits: sd.Hits(), meta: buf.Meta(), rows: buf.Rows()})
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) call(i int) recordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

var col0Meta = row.NewMeta(row.Column{Name: "col0", Type: row.TypeInteger})

func intRow(v int) row.Row { return row.Row{v} }

func intRows(vs ...int) []row.Row {
	out := make([]row.Row, len(vs))
	for i, v := range vs {
		out[i] = intRow(v)
	}
	return out
}

func compile(t *testing.T, src string) *condition.Expression {
	t.Helper()
	cond, err := condition.NewEvaluator().Compile(src)
	require.NoError(t, err)
	return cond
}

// attachOne builds a TransDebug with a single step and attaches it to a fake
// transformation with the given number of copies.
func attachOne(t *testing.T, step string, copies int, sd *StepDebug, listeners ...BreakpointListener) (*TransDebug, *fakeTrans) {
	t.Helper()
	ft := newFakeTrans(map[string]int{step: copies})
	td := New(ft, WithLogger(log.Discard()))
	require.NoError(t, td.AddStep(step, sd))
	for _, l := range listeners {
		sd.AddBreakpointListener(l)
	}
	require.NoError(t, td.Attach(ft))
	return td, ft
}

func feed(t *testing.T, e *fakeEmitter, meta *row.Meta, values ...int) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, e.write(meta, intRow(v)), fmt.Sprintf("row %d", v))
	}
}
