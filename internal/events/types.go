package events

import (
	"fmt"
	"sync/atomic"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Capture workflow
	EventMoodState    EventType = "mood.state"
	EventMoodDetected EventType = "mood.detected"

	// Video feed
	EventFeedLoaded EventType = "feed.loaded"
	EventFeedFailed EventType = "feed.failed"

	// Capture session lifecycle
	EventSessionCreated EventType = "session.created"
	EventSessionClosed  EventType = "session.closed"

	EventConfigReloaded EventType = "config.reloaded"

	// Vision model calls
	EventVisionCall EventType = "vision.call"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceCapture EventSource = "capture"
	SourceFeed    EventSource = "feed"
	SourceGateway EventSource = "gateway"
	SourceWS      EventSource = "ws"
	SourceTUI     EventSource = "tui"
	SourceModel   EventSource = "model"
)

// Event is a single notification on the bus.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id,omitempty"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    EventSource    `json:"source"`
	Payload   map[string]any `json:"payload"`
}

var eventIDCounter uint64

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, source EventSource, payload map[string]any) Event {
	return NewEventWithSession(eventType, source, payload, "")
}

// NewEventWithSession creates a new event attached to a capture session.
func NewEventWithSession(eventType EventType, source EventSource, payload map[string]any, sessionID string) Event {
	return Event{
		ID:        generateEventID(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

func generateEventID() string {
	seq := atomic.AddUint64(&eventIDCounter, 1)
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), seq)
}
