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
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tombee/sluice/internal/log"
	"github.com/tombee/sluice/pkg/errors"
	"github.com/tombee/sluice/pkg/row"
)

// ErrAlreadyAttached is returned when a TransDebug is attached a second time
// or changed after being attached.
var ErrAlreadyAttached = errors.New("transformation debugger already attached")

// Meta describes the transformation a TransDebug is configured for.
type Meta interface {
	Name() string
	HasStep(name string) bool
}

// Transformation is the running transformation a TransDebug attaches to.
type Transformation interface {
	// FindStepInstances returns every live copy of the named step.
	FindStepInstances(step string) []row.Emitter

	// IsPaused reports whether the transformation is paused.
	IsPaused() bool

	// PauseRunning asks every step to pause. It is idempotent.
	PauseRunning()

	// IsStopped reports whether the transformation was stopped.
	IsStopped() bool
}

// Option configures a TransDebug.
type Option func(*TransDebug)

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(td *TransDebug) {
		td.logger = logger
	}
}

// WithTracer sets the tracer used for breakpoint spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(td *TransDebug) {
		if tracer != nil {
			td.tracer = tracer
		}
	}
}

// TransDebug is the debug configuration of one transformation: at most one
// StepDebug per step.
type TransDebug struct {
	meta   Meta
	logger *slog.Logger
	tracer trace.Tracer

	mu    sync.RWMutex
	steps map[string]*StepDebug
	order []string

	attached atomic.Bool
}

// New creates an empty TransDebug for the transformation described by meta.
func New(meta Meta, opts ...Option) *TransDebug {
	td := &TransDebug{
		meta:   meta,
		tracer: noop.NewTracerProvider().Tracer(tracerName),
		steps:  make(map[string]*StepDebug),
	}
	for _, opt := range opts {
		opt(td)
	}

	td.logger = log.WithComponent(log.OrDefault(td.logger), "debug")
	if meta != nil {
		td.logger = log.WithTransformation(td.logger, meta.Name())
	}
	return td
}

// Meta returns the transformation metadata.
func (td *TransDebug) Meta() Meta {
	return td.meta
}

// AddStep registers sd for the named step.
func (td *TransDebug) AddStep(step string, sd *StepDebug) error {
	if sd == nil {
		return &errors.ValidationError{Field: "step", Message: fmt.Sprintf("no debug configuration for step %q", step)}
	}

	td.mu.Lock()
	defer td.mu.Unlock()

	if td.attached.Load() {
		return ErrAlreadyAttached
	}
	if _, exists := td.steps[step]; exists {
		return &errors.ValidationError{
			Field:      "step",
			Message:    fmt.Sprintf("step %q already has a debug configuration", step),
			Suggestion: "combine the preview and breakpoint flags for a step into one",
		}
	}
	if sd.step != "" && sd.step != step {
		return &errors.ValidationError{
			Field:   "step",
			Message: fmt.Sprintf("debug configuration is already registered for step %q", sd.step),
		}
	}

	sd.step = step
	td.steps[step] = sd
	td.order = append(td.order, step)
	return nil
}

// StepDebug returns the configuration of the named step, or nil.
func (td *TransDebug) StepDebug(step string) *StepDebug {
	td.mu.RLock()
	defer td.mu.RUnlock()
	return td.steps[step]
}

// StepDebugMap returns a copy of the step name to StepDebug mapping.
func (td *TransDebug) StepDebugMap() map[string]*StepDebug {
	td.mu.RLock()
	defer td.mu.RUnlock()

	out := make(map[string]*StepDebug, len(td.steps))
	for name, sd := range td.steps {
		out[name] = sd
	}
	return out
}

// Steps returns the configured step names in registration order.
func (td *TransDebug) Steps() []string {
	td.mu.RLock()
	defer td.mu.RUnlock()
	return append([]string(nil), td.order...)
}

func (td *TransDebug) stepDebugs() []*StepDebug {
	td.mu.RLock()
	defer td.mu.RUnlock()

	out := make([]*StepDebug, 0, len(td.order))
	for _, name := range td.order {
		out = append(out, td.steps[name])
	}
	return out
}

// Attach installs a row observer on every live copy of each configured step.
// Steps without live copies are skipped. A TransDebug can be attached once.
func (td *TransDebug) Attach(t Transformation) error {
	if t == nil {
		return &errors.ValidationError{Field: "transformation", Message: "transformation is nil"}
	}

	// The step list is frozen under the same lock AddStep takes.
	td.mu.Lock()
	if !td.attached.CompareAndSwap(false, true) {
		td.mu.Unlock()
		return ErrAlreadyAttached
	}
	steps := make([]*StepDebug, 0, len(td.order))
	for _, name := range td.order {
		steps = append(steps, td.steps[name])
	}
	td.mu.Unlock()

	for _, sd := range steps {
		instances := t.FindStepInstances(sd.step)
		if len(instances) == 0 {
			err := &errors.NotFoundError{Resource: "step", ID: sd.step}
			td.logger.Debug("skipping debug configuration", log.StepKey, sd.step, log.Error(err))
			continue
		}

		obs := &capture{step: sd.step, sd: sd, trans: t, owner: td}
		for _, inst := range instances {
			inst.AddRowObserver(obs)
			attachedObservers.Inc()
		}

		td.logger.Info("debugger attached to step",
			log.StepKey, sd.step,
			log.ModeKey, sd.mode.String(),
			"rows", sd.rowCount,
			"copies", len(instances))
	}
	return nil
}

// IsAttached reports whether Attach has been called.
func (td *TransDebug) IsAttached() bool {
	return td.attached.Load()
}

// AddBreakpointListenerToAll registers l on every configured step.
func (td *TransDebug) AddBreakpointListenerToAll(l BreakpointListener) {
	for _, sd := range td.stepDebugs() {
		sd.AddBreakpointListener(l)
	}
}

// TotalHits returns the sum of hits over all steps.
func (td *TransDebug) TotalHits() int64 {
	var total int64
	for _, sd := range td.stepDebugs() {
		total += sd.Hits()
	}
	return total
}

// ActiveStepCount returns the number of steps that can capture rows: previews
// with a positive row count and breakpoints with a non-empty condition.
func (td *TransDebug) ActiveStepCount() int {
	n := 0
	for _, sd := range td.stepDebugs() {
		if sd.isActive() {
			n++
		}
	}
	return n
}
