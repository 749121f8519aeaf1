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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/sluice/internal/log"
	"github.com/tombee/sluice/pkg/errors"
)

func TestEventListener_PublishesHits(t *testing.T) {
	events := NewEventListener(4, log.Discard())
	sd := NewBreakpoint(2, compile(t, "col0 >= 2"))
	_, ft := attachOne(t, "s", 1, sd, events)

	feed(t, ft.emitter("s", 0), col0Meta, 1, 2)

	require.Len(t, events.Events(), 1)
	event := <-events.Events()
	assert.Equal(t, EventBreakpoint, event.Type)
	assert.Equal(t, "s", event.Step)
	assert.Equal(t, ModeBreakpoint, event.Mode)
	assert.Equal(t, int64(1), event.Hits)
	assert.Equal(t, int64(1), event.TotalHits)
	assert.Same(t, col0Meta, event.Meta)
	assert.Equal(t, intRows(2, 1), event.Rows)
	assert.False(t, event.Timestamp.IsZero())
	_, err := uuid.Parse(event.HitID)
	assert.NoError(t, err)
}

func TestEventListener_PreviewReady(t *testing.T) {
	events := NewEventListener(4, log.Discard())
	_, ft := attachOne(t, "s", 1, NewPreview(1), events)

	feed(t, ft.emitter("s", 0), col0Meta, 1, 2)

	event := <-events.Events()
	assert.Equal(t, EventPreviewReady, event.Type)
	assert.Equal(t, intRows(1), event.Rows)
}

func TestEventListener_DropsWhenFull(t *testing.T) {
	events := NewEventListener(1, log.Discard())
	sd := NewBreakpoint(1, compile(t, "true"))
	_, ft := attachOne(t, "s", 1, sd, events)

	feed(t, ft.emitter("s", 0), col0Meta, 1, 2, 3)

	assert.Equal(t, int64(3), sd.Hits(), "a full channel never blocks the step")
	require.Len(t, events.Events(), 1)
	first := <-events.Events()
	assert.Equal(t, int64(1), first.Hits)
}

func TestEventListener_Finish(t *testing.T) {
	events := NewEventListener(0, log.Discard())
	runErr := errors.New("step failed")

	events.Finish(runErr)
	events.Finish(nil)

	event, ok := <-events.Events()
	require.True(t, ok)
	assert.Equal(t, EventFinished, event.Type)
	assert.Equal(t, runErr, event.Err)

	_, ok = <-events.Events()
	assert.False(t, ok, "channel is closed")

	sd := NewBreakpoint(1, compile(t, "true"))
	_, ft := attachOne(t, "s", 1, sd, events)
	assert.NotPanics(t, func() { feed(t, ft.emitter("s", 0), col0Meta, 1) })
}
