// SPDX-License-Identifier: MIT

package monitor

import (
	"fmt"
	"sync"

	"github.com/mabrink/busybeat/internal/log"
	"github.com/rs/zerolog"
)

// State is the display lifecycle of the current track.
type State string

// Event moves the display lifecycle forward.
type Event string

const (
	// StateIdle means nothing is on the display that we own.
	StateIdle State = "idle"
	// StateDetected means a new track was observed but nothing pushed yet.
	StateDetected State = "detected"
	// StateStaticPushed means the artwork composite is on the device.
	StateStaticPushed State = "static_pushed"
	// StateAnimatedPending means the canvas pipeline is running behind the
	// already-visible static image.
	StateAnimatedPending State = "animated_pending"
	// StateAnimatedPushed means the canvas GIF replaced the static image.
	StateAnimatedPushed State = "animated_pushed"
	// StateCancelled means the animated pipeline was abandoned for a newer
	// track; the static image of the old track may still be visible.
	StateCancelled State = "cancelled"
	// StateFailed means a push failed; the display content is whatever was
	// there before.
	StateFailed State = "failed"
)

const (
	EventTrackDetected     Event = "track_detected"
	EventStaticPushed      Event = "static_pushed"
	EventAnimatedStarted   Event = "animated_started"
	EventAnimatedPushed    Event = "animated_pushed"
	EventAnimatedFailed    Event = "animated_failed"
	EventAnimatedCancelled Event = "animated_cancelled"
	EventDisplayFailed     Event = "display_failed"
	// EventReset returns to idle from any state: playback stopped or a new
	// track supersedes the current lifecycle.
	EventReset Event = "reset"
)

type transition struct {
	from  State
	event Event
	to    State
}

var displayTransitions = []transition{
	{StateIdle, EventTrackDetected, StateDetected},
	{StateDetected, EventStaticPushed, StateStaticPushed},
	{StateDetected, EventDisplayFailed, StateFailed},
	{StateStaticPushed, EventAnimatedStarted, StateAnimatedPending},
	{StateAnimatedPending, EventAnimatedPushed, StateAnimatedPushed},
	{StateAnimatedPending, EventAnimatedFailed, StateFailed},
	{StateAnimatedPending, EventAnimatedCancelled, StateCancelled},
}

// displayFSM is a strict transition table: unknown edges are errors, except
// EventReset which is accepted from every state.
type displayFSM struct {
	mu     sync.Mutex
	state  State
	index  map[string]transition
	logger zerolog.Logger
}

func newDisplayFSM() *displayFSM {
	idx := make(map[string]transition, len(displayTransitions))
	for _, t := range displayTransitions {
		idx[string(t.from)+"|"+string(t.event)] = t
	}
	return &displayFSM{
		state:  StateIdle,
		index:  idx,
		logger: log.WithComponent("display"),
	}
}

func (m *displayFSM) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies an event atomically and logs the edge.
func (m *displayFSM) Fire(event Event) (State, error) {
	m.mu.Lock()
	from := m.state

	var to State
	if event == EventReset {
		to = StateIdle
	} else {
		t, ok := m.index[string(from)+"|"+string(event)]
		if !ok {
			m.mu.Unlock()
			return from, fmt.Errorf("invalid transition: state=%s event=%s", from, event)
		}
		to = t.to
	}
	m.state = to
	m.mu.Unlock()

	if from != to {
		displayStateTotal.WithLabelValues(string(from), string(to)).Inc()
		m.logger.Debug().
			Str(log.FieldOldState, string(from)).
			Str(log.FieldNewState, string(to)).
			Str(log.FieldEvent, string(event)).
			Msg("display state changed")
	}
	return to, nil
}
