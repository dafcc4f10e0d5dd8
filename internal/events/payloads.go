package events

import "encoding/json"

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// CAPTURE EVENTS
// =============================================================================

// MoodStatePayload mirrors a capture workflow transition.
type MoodStatePayload struct {
	Phase       string `json:"phase"`
	Message     string `json:"message"`
	Label       string `json:"label,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Resettable  bool   `json:"resettable,omitempty"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
}

func (MoodStatePayload) EventType() EventType { return EventMoodState }

// MoodDetectedPayload is published once per detection, after the label has been shown.
type MoodDetectedPayload struct {
	Label      string             `json:"label"`
	Expression string             `json:"expression,omitempty"`
	Score      float64            `json:"score"`
	Fallback   bool               `json:"fallback"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

func (MoodDetectedPayload) EventType() EventType { return EventMoodDetected }

// =============================================================================
// FEED EVENTS
// =============================================================================

type FeedLoadedPayload struct {
	Kind  string `json:"kind"`
	Mood  string `json:"mood,omitempty"`
	Query string `json:"query"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

func (FeedLoadedPayload) EventType() EventType { return EventFeedLoaded }

type FeedFailedPayload struct {
	Mood  string `json:"mood,omitempty"`
	Query string `json:"query"`
	Error string `json:"error"`
}

func (FeedFailedPayload) EventType() EventType { return EventFeedFailed }

// =============================================================================
// SESSION EVENTS
// =============================================================================

type SessionCreatedPayload struct {
	Device string `json:"device"`
}

func (SessionCreatedPayload) EventType() EventType { return EventSessionCreated }

type SessionClosedPayload struct {
	Reason string `json:"reason,omitempty"`
}

func (SessionClosedPayload) EventType() EventType { return EventSessionClosed }

type ConfigReloadedPayload struct {
	Path    string   `json:"path"`
	Changed []string `json:"changed,omitempty"`
}

func (ConfigReloadedPayload) EventType() EventType { return EventConfigReloaded }

// =============================================================================
// MODEL EVENTS
// =============================================================================

// VisionCallPayload reports one phase of a classifier model call.
type VisionCallPayload struct {
	Phase        string `json:"phase"` // request, response, error
	Model        string `json:"model"`
	Provider     string `json:"provider,omitempty"`
	MessageCount int    `json:"message_count,omitempty"`
	TokensInput  int    `json:"tokens_input,omitempty"`
	TokensOutput int    `json:"tokens_output,omitempty"`
	DurationMs   int64  `json:"duration_ms,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (VisionCallPayload) EventType() EventType { return EventVisionCall }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return NewEvent(payload.EventType(), source, toMap(payload))
}

func NewTypedEventWithSession(source EventSource, payload EventPayload, sessionID string) Event {
	return NewEventWithSession(payload.EventType(), source, toMap(payload), sessionID)
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if e.Type != result.EventType() {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}
