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

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/tombee/sluice/internal/log"
	"github.com/tombee/sluice/pkg/condition"
	"github.com/tombee/sluice/pkg/row"
)

type rowMsg struct {
	meta *row.Meta
	row  row.Row
}

type compiledField struct {
	column row.Column
	expr   *condition.Expression
}

// StepInstance is one running copy of a step. It implements row.Emitter.
type StepInstance struct {
	trans  *Trans
	def    *StepDefinition
	copyNr int
	logger *slog.Logger

	fields []compiledField
	cond   *condition.Expression

	// generate output schema, or the calc output schema for lastIn
	outMeta *row.Meta
	lastIn  *row.Meta

	input   <-chan rowMsg
	outputs []chan<- rowMsg

	observersMu sync.RWMutex
	observers   []row.Observer

	written atomic.Int64
}

// Name returns the step name.
func (s *StepInstance) Name() string {
	return s.def.Name
}

// CopyNr returns the zero-based copy number.
func (s *StepInstance) CopyNr() int {
	return s.copyNr
}

// RowsWritten returns the number of rows this copy has written.
func (s *StepInstance) RowsWritten() int64 {
	return s.written.Load()
}

// AddRowObserver implements row.Emitter.
func (s *StepInstance) AddRowObserver(o row.Observer) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *StepInstance) run(ctx context.Context) (err error) {
	defer s.trans.copyFinished(s)

	s.logger.Debug("step copy started")
	defer func() {
		if err != nil {
			s.logger.Debug("step copy failed", "rows_written", s.RowsWritten(), log.Error(err))
			return
		}
		s.logger.Debug("step copy finished", "rows_written", s.RowsWritten())
	}()

	if s.def.Type == StepTypeGenerate {
		return s.generate(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.input:
			if !ok {
				return nil
			}
			if err := s.process(ctx, msg); err != nil {
				return err
			}
		}
	}
}

func (s *StepInstance) generate(ctx context.Context) error {
	var limiter *rate.Limiter
	if s.def.RowsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.def.RowsPerSecond), 1)
	}

	for i := s.copyNr; i < s.def.Rows; i += s.def.Copies {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		env := map[string]any{"rownum": i + 1, "copy": s.copyNr}
		r := make(row.Row, len(s.fields))
		for j, f := range s.fields {
			v, err := f.expr.Run(env)
			if err != nil {
				return s.wrap(fmt.Errorf("field %s: %w", f.column.Name, err))
			}
			r[j] = v
			env[f.column.Name] = v
		}

		if err := s.putRow(ctx, s.outMeta, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *StepInstance) process(ctx context.Context, msg rowMsg) error {
	switch s.def.Type {
	case StepTypeFilter:
		ok, err := s.cond.Evaluate(msg.meta, msg.row)
		if err != nil {
			return s.wrap(err)
		}
		if !ok {
			return nil
		}
		return s.putRow(ctx, msg.meta, msg.row)

	case StepTypeCalc:
		if msg.meta != s.lastIn {
			cols := make([]row.Column, len(s.fields))
			for i, f := range s.fields {
				cols[i] = f.column
			}
			s.lastIn = msg.meta
			s.outMeta = msg.meta.With(cols...)
		}

		env := condition.Env(msg.meta, msg.row)
		out := make(row.Row, 0, len(msg.row)+len(s.fields))
		out = append(out, msg.row...)
		for _, f := range s.fields {
			v, err := f.expr.Run(env)
			if err != nil {
				return s.wrap(fmt.Errorf("field %s: %w", f.column.Name, err))
			}
			out = append(out, v)
			env[f.column.Name] = v
		}
		return s.putRow(ctx, s.outMeta, out)

	default:
		return s.putRow(ctx, msg.meta, msg.row)
	}
}

// putRow waits while the transformation is paused, notifies the row
// observers and hands the row to every downstream step. Downstream steps
// after the first receive a clone.
func (s *StepInstance) putRow(ctx context.Context, meta *row.Meta, r row.Row) error {
	if err := s.trans.waitWhilePaused(ctx); err != nil {
		return err
	}

	s.observersMu.RLock()
	observers := slices.Clone(s.observers)
	s.observersMu.RUnlock()

	for _, o := range observers {
		if err := o.RowWritten(meta, r); err != nil {
			return s.wrap(err)
		}
	}

	s.written.Add(1)
	rowsWritten.WithLabelValues(s.def.Name).Inc()
	log.Trace(s.logger, "row written", slog.Int("fields", len(r)))

	for i, out := range s.outputs {
		payload := r
		if i > 0 {
			cp, err := meta.CloneRow(r)
			if err != nil {
				return s.wrap(err)
			}
			payload = cp
		}

		select {
		case out <- rowMsg{meta: meta, row: payload}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *StepInstance) wrap(err error) error {
	return fmt.Errorf("step %s copy %d: %w", s.def.Name, s.copyNr, err)
}
