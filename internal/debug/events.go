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
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/sluice/internal/log"
	"github.com/tombee/sluice/pkg/row"
)

// EventType represents the type of debug event.
type EventType string

const (
	// EventBreakpoint indicates a breakpoint condition held and the
	// transformation paused.
	EventBreakpoint EventType = "breakpoint"

	// EventPreviewReady indicates a preview buffer filled up and the
	// transformation paused.
	EventPreviewReady EventType = "preview_ready"

	// EventFinished indicates the transformation has finished.
	EventFinished EventType = "finished"
)

// Event represents a debug event emitted during a transformation run.
type Event struct {
	// Type is the type of event.
	Type EventType

	// HitID uniquely identifies the hit.
	HitID string

	// Step is the name of the step that hit (if applicable).
	Step string

	// Mode is the debug mode of the step.
	Mode Mode

	// Hits is the hit count of the step, this hit included.
	Hits int64

	// TotalHits is the hit count over all steps.
	TotalHits int64

	// Meta is the schema of the captured rows.
	Meta *row.Meta

	// Rows is a copy of the step buffer at the time of the hit.
	Rows []row.Row

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Err is the run error carried by EventFinished.
	Err error
}

// DefaultEventBuffer is the default capacity of an EventListener channel.
const DefaultEventBuffer = 16

// EventListener is a BreakpointListener that publishes each hit as an Event.
// Hits are dropped with a warning when the channel is full.
type EventListener struct {
	logger *slog.Logger

	mu     sync.Mutex
	events chan *Event
	closed bool
}

// NewEventListener creates an EventListener with the given channel capacity.
func NewEventListener(buffer int, logger *slog.Logger) *EventListener {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &EventListener{
		logger: log.WithComponent(log.OrDefault(logger), "debug-events"),
		events: make(chan *Event, buffer),
	}
}

// Events returns the event channel. It is closed by Finish.
func (l *EventListener) Events() <-chan *Event {
	return l.events
}

// OnBreakpoint implements BreakpointListener.
func (l *EventListener) OnBreakpoint(td *TransDebug, sd *StepDebug, buf *RowBuffer) error {
	eventType := EventBreakpoint
	if sd.IsReadingFirstRows() {
		eventType = EventPreviewReady
	}

	event := &Event{
		Type:      eventType,
		HitID:     uuid.NewString(),
		Step:      sd.Step(),
		Mode:      sd.Mode(),
		Hits:      sd.Hits(),
		TotalHits: td.TotalHits(),
		Meta:      buf.Meta(),
		Rows:      buf.Rows(),
		Timestamp: time.Now(),
	}

	if !l.publish(event) {
		l.logger.Warn("debug event dropped",
			log.StepKey, event.Step,
			log.HitIDKey, event.HitID,
			"type", string(event.Type))
	}
	return nil
}

// Finish publishes EventFinished carrying err and closes the channel. Later
// hits are dropped.
func (l *EventListener) Finish(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	select {
	case l.events <- &Event{Type: EventFinished, Timestamp: time.Now(), Err: err}:
	default:
		l.logger.Warn("finish event dropped", log.Error(err))
	}
	l.closed = true
	close(l.events)
}

func (l *EventListener) publish(event *Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	select {
	case l.events <- event:
		return true
	default:
		return false
	}
}

// CommandType represents the type of debug shell command.
type CommandType string

const (
	// CommandContinue resumes the transformation.
	CommandContinue CommandType = "continue"

	// CommandAbort stops the transformation.
	CommandAbort CommandType = "abort"

	// CommandRows prints the captured rows.
	CommandRows CommandType = "rows"

	// CommandQuery runs a jq query over the captured rows.
	CommandQuery CommandType = "query"

	// CommandHits prints hit counters.
	CommandHits CommandType = "hits"

	// CommandHelp prints the command list.
	CommandHelp CommandType = "help"
)

// Command represents a debug shell command.
type Command struct {
	// Type is the type of command.
	Type CommandType

	// Args is the remainder of the command line (e.g., the jq expression).
	Args string
}
