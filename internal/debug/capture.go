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
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tombee/sluice/internal/log"
	"github.com/tombee/sluice/pkg/errors"
	"github.com/tombee/sluice/pkg/row"
)

const tracerName = "github.com/tombee/sluice/internal/debug"

// capture is the row observer installed on each copy of a watched step. All
// copies of a step share one capture.
type capture struct {
	step  string
	sd    *StepDebug
	trans Transformation
	owner *TransDebug
}

// RowWritten implements row.Observer.
func (c *capture) RowWritten(meta *row.Meta, r row.Row) error {
	if c.trans.IsStopped() {
		return nil
	}

	sd := c.sd
	sd.mu.Lock()
	defer sd.mu.Unlock()

	switch {
	case sd.mode == ModePreview && sd.rowCount > 0:
		return c.preview(meta, r)
	case sd.mode == ModeBreakpoint && sd.condition != nil:
		return c.breakpoint(meta, r)
	default:
		return nil
	}
}

// preview keeps the first rowCount rows, then pauses once the buffer is full.
func (c *capture) preview(meta *row.Meta, r row.Row) error {
	sd := c.sd
	buf := &sd.buffer

	if buf.Len() < sd.rowCount {
		cp, err := c.clone(meta, r)
		if err != nil {
			return err
		}
		buf.SetMeta(meta)
		buf.Append(cp)
		return nil
	}

	if c.trans.IsPaused() {
		return nil
	}
	c.trans.PauseRunning()
	return c.hit()
}

// breakpoint keeps the last rowCount rows newest first and pauses when the
// condition holds.
func (c *capture) breakpoint(meta *row.Meta, r row.Row) error {
	sd := c.sd
	buf := &sd.buffer

	cp, err := c.clone(meta, r)
	if err != nil {
		return err
	}
	buf.SetMeta(meta)

	if sd.rowCount > 0 {
		buf.Prepend(cp)
		if buf.Len() > sd.rowCount {
			buf.RemoveOldest()
		}
	} else if buf.Len() == 0 {
		buf.Append(cp)
	} else {
		buf.Set(0, cp)
	}

	ok, err := sd.condition.Evaluate(meta, r)
	if err != nil {
		captureErrors.WithLabelValues(c.step, errors.CaptureOpEvaluate).Inc()
		return &errors.CaptureError{Step: c.step, Op: errors.CaptureOpEvaluate, Cause: err}
	}
	if !ok {
		return nil
	}

	c.trans.PauseRunning()
	return c.hit()
}

func (c *capture) clone(meta *row.Meta, r row.Row) (row.Row, error) {
	cp, err := meta.CloneRow(r)
	if err != nil {
		captureErrors.WithLabelValues(c.step, errors.CaptureOpClone).Inc()
		return nil, &errors.CaptureError{Step: c.step, Op: errors.CaptureOpClone, Cause: err}
	}
	rowsCaptured.WithLabelValues(c.step, c.sd.mode.String()).Inc()
	return cp, nil
}

// hit notifies the listeners of the step. The caller holds the step lock.
func (c *capture) hit() error {
	sd := c.sd
	mode := sd.mode.String()

	_, span := c.owner.tracer.Start(context.Background(), "debug.breakpoint")
	defer span.End()

	err := sd.fireBreakpointListeners(c.owner)
	hits := sd.Hits()
	breakpointHits.WithLabelValues(c.step, mode).Inc()

	span.SetAttributes(
		attribute.String("sluice.step", c.step),
		attribute.String("sluice.debug.mode", mode),
		attribute.Int64("sluice.debug.hits", hits),
		attribute.Int("sluice.debug.rows", sd.buffer.Len()),
	)

	if err != nil {
		listenerErrors.WithLabelValues(c.step).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.owner.logger.Warn("breakpoint listener failed",
			log.StepKey, c.step,
			log.ModeKey, mode,
			log.Error(err))
		return err
	}

	c.owner.logger.Debug("breakpoint hit",
		log.StepKey, c.step,
		log.ModeKey, mode,
		"hits", hits,
		"rows", sd.buffer.Len())
	return nil
}
