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
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tombee/sluice/internal/log"
	"github.com/tombee/sluice/pkg/condition"
	"github.com/tombee/sluice/pkg/errors"
	"github.com/tombee/sluice/pkg/row"
)

// Option configures a Trans.
type Option func(*Trans)

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trans) {
		t.logger = logger
	}
}

// WithEvaluator shares a compiled-expression cache with other components.
func WithEvaluator(eval *condition.Evaluator) Option {
	return func(t *Trans) {
		if eval != nil {
			t.eval = eval
		}
	}
}

// Trans is a running instance of a transformation definition. Every step
// copy runs on its own goroutine and rows flow between steps over buffered
// channels.
type Trans struct {
	def    *Definition
	logger *slog.Logger
	eval   *condition.Evaluator

	mu        sync.Mutex
	prepared  bool
	started   bool
	instances map[string][]*StepInstance
	inputs    map[string]chan rowMsg
	upstream  map[string]*sync.WaitGroup
	cancel    context.CancelFunc
	group     *errgroup.Group

	pauseMu sync.Mutex
	paused  bool
	resume  chan struct{}

	stopped  atomic.Bool
	finished atomic.Bool

	waitOnce sync.Once
	err      error
}

// New creates a transformation for def. def must be valid.
func New(def *Definition, opts ...Option) *Trans {
	t := &Trans{
		def:  def,
		eval: condition.NewEvaluator(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = log.WithTransformation(log.WithComponent(log.OrDefault(t.logger), "engine"), def.Name)
	return t
}

// Name returns the transformation name.
func (t *Trans) Name() string {
	return t.def.Name
}

// HasStep reports whether the definition has the named step.
func (t *Trans) HasStep(name string) bool {
	return t.def.Step(name) != nil
}

// Definition returns the transformation definition.
func (t *Trans) Definition() *Definition {
	return t.def
}

// Prepare compiles expressions and creates the step copies and channels.
// Row observers can be installed once Prepare has returned.
func (t *Trans) Prepare() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.prepared {
		return nil
	}

	bufferSize := t.def.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	inputs := make(map[string]chan rowMsg)
	upstream := make(map[string]*sync.WaitGroup)
	for _, step := range t.def.Steps {
		if step.Type == StepTypeGenerate {
			continue
		}
		inputs[step.Name] = make(chan rowMsg, bufferSize)
		wg := &sync.WaitGroup{}
		for _, from := range t.def.inputs(step.Name) {
			wg.Add(copiesOf(t.def.Step(from)))
		}
		upstream[step.Name] = wg
	}

	instances := make(map[string][]*StepInstance, len(t.def.Steps))
	for i := range t.def.Steps {
		step := &t.def.Steps[i]

		fields, err := t.compileFields(step)
		if err != nil {
			return err
		}

		var cond *condition.Expression
		if step.Type == StepTypeFilter {
			cond, err = t.eval.Compile(step.Condition)
			if err != nil {
				return errors.Wrapf(err, "step %s", step.Name)
			}
		}

		var outputs []chan<- rowMsg
		for _, to := range t.def.outputs(step.Name) {
			outputs = append(outputs, inputs[to])
		}

		copies := copiesOf(step)
		for c := 0; c < copies; c++ {
			inst := &StepInstance{
				trans:   t,
				def:     step,
				copyNr:  c,
				logger:  log.WithStepContext(t.logger, step.Name, c),
				fields:  fields,
				cond:    cond,
				input:   inputs[step.Name],
				outputs: outputs,
			}
			if step.Type == StepTypeGenerate {
				cols := make([]row.Column, len(fields))
				for j, f := range fields {
					cols[j] = f.column
				}
				inst.outMeta = row.NewMeta(cols...)
			}
			instances[step.Name] = append(instances[step.Name], inst)
		}
	}

	t.inputs = inputs
	t.upstream = upstream
	t.instances = instances
	t.prepared = true

	t.logger.Debug("transformation prepared", "steps", len(t.def.Steps))
	return nil
}

func (t *Trans) compileFields(step *StepDefinition) ([]compiledField, error) {
	fields := make([]compiledField, 0, len(step.Fields))
	for _, f := range step.Fields {
		expr, err := t.eval.CompileValue(f.Expr)
		if err != nil {
			return nil, fmt.Errorf("step %s field %s: %w", step.Name, f.Name, err)
		}
		vt, err := row.ParseValueType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("step %s field %s: %w", step.Name, f.Name, err)
		}
		fields = append(fields, compiledField{column: row.Column{Name: f.Name, Type: vt}, expr: expr})
	}
	return fields, nil
}

func copiesOf(step *StepDefinition) int {
	if step.Copies < 1 {
		return 1
	}
	return step.Copies
}

// Start launches every step copy. It prepares the transformation first if
// needed. Start returns immediately; use Wait for the outcome.
func (t *Trans) Start(ctx context.Context) error {
	if err := t.Prepare(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return errors.New("transformation already started")
	}
	t.started = true

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	if t.stopped.Load() {
		cancel()
	}

	g, gctx := errgroup.WithContext(runCtx)
	t.group = g

	for name, ch := range t.inputs {
		wg := t.upstream[name]
		g.Go(func() error {
			wg.Wait()
			close(ch)
			return nil
		})
	}

	for _, step := range t.def.Steps {
		for _, inst := range t.instances[step.Name] {
			g.Go(func() error {
				return inst.run(gctx)
			})
		}
	}

	t.logger.Info("transformation started", "steps", len(t.def.Steps))
	return nil
}

// copyFinished signals the steps fed by s that one upstream copy is done.
func (t *Trans) copyFinished(s *StepInstance) {
	for _, to := range t.def.outputs(s.def.Name) {
		t.upstream[to].Done()
	}
}

// Wait blocks until every step copy has finished and returns the first step
// error. A run ended by Stop is not an error.
func (t *Trans) Wait() error {
	t.mu.Lock()
	g := t.group
	t.mu.Unlock()

	if g == nil {
		return errors.New("transformation not started")
	}

	t.waitOnce.Do(func() {
		err := g.Wait()
		t.cancel()
		t.finished.Store(true)

		if err != nil && t.stopped.Load() && errors.Is(err, context.Canceled) {
			err = nil
		}
		t.err = err

		if err != nil {
			t.logger.Error("transformation failed", log.Error(err), "error_type", errors.TypeOf(err))
			return
		}
		t.logger.Info("transformation finished", "stopped", t.stopped.Load())
	})
	return t.err
}

// Run prepares, starts and waits for the transformation.
func (t *Trans) Run(ctx context.Context) error {
	if err := t.Start(ctx); err != nil {
		return err
	}
	return t.Wait()
}

// FindStepInstances returns the copies of the named step as row emitters.
func (t *Trans) FindStepInstances(step string) []row.Emitter {
	instances := t.StepInstances(step)
	out := make([]row.Emitter, len(instances))
	for i, inst := range instances {
		out[i] = inst
	}
	return out
}

// StepInstances returns the copies of the named step. It is empty before
// Prepare.
func (t *Trans) StepInstances(step string) []*StepInstance {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*StepInstance(nil), t.instances[step]...)
}

// IsPaused reports whether the transformation is paused.
func (t *Trans) IsPaused() bool {
	t.pauseMu.Lock()
	defer t.pauseMu.Unlock()
	return t.paused
}

// PauseRunning pauses every step before its next row is written. It is
// idempotent.
func (t *Trans) PauseRunning() {
	t.pauseMu.Lock()
	defer t.pauseMu.Unlock()

	if t.paused {
		return
	}
	t.paused = true
	t.resume = make(chan struct{})
	t.logger.Debug("transformation paused")
}

// ResumeRunning releases the steps held by PauseRunning.
func (t *Trans) ResumeRunning() {
	t.pauseMu.Lock()
	defer t.pauseMu.Unlock()

	if !t.paused {
		return
	}
	t.paused = false
	close(t.resume)
	t.logger.Debug("transformation resumed")
}

// Stop cancels every step copy. Rows still in flight are discarded.
func (t *Trans) Stop() {
	if t.stopped.Swap(true) {
		return
	}

	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.ResumeRunning()
	t.logger.Info("transformation stopped")
}

// IsStopped reports whether Stop was called.
func (t *Trans) IsStopped() bool {
	return t.stopped.Load()
}

// IsFinished reports whether Wait has observed the end of the run.
func (t *Trans) IsFinished() bool {
	return t.finished.Load()
}

func (t *Trans) waitWhilePaused(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.pauseMu.Lock()
	if !t.paused {
		t.pauseMu.Unlock()
		return nil
	}
	resume := t.resume
	t.pauseMu.Unlock()

	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
