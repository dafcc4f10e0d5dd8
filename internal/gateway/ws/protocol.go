package ws

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// FrameType represents the type of WebSocket frame.
type FrameType string

const (
	FrameTypeRequest  FrameType = "req"
	FrameTypeResponse FrameType = "res"
	FrameTypeEvent    FrameType = "event"
)

// Method represents a WebSocket request method.
type Method string

const (
	MethodSubscribe    Method = "subscribe"     // SubscribeParams
	MethodOpenCapture  Method = "open_capture"  // CaptureParams (wait)
	MethodCapture      Method = "capture"       // CaptureParams
	MethodResetCapture Method = "reset_capture" // CaptureParams
	MethodCloseCapture Method = "close_capture" // CaptureParams
	MethodLoadFeed     Method = "load_feed"     // FeedParams
)

// Frame is the WebSocket protocol envelope.
type Frame struct {
	Type      FrameType       `json:"type"`
	ID        string          `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	OK        *bool           `json:"ok,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	Event     string          `json:"event,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

// SubscribeParams narrows the events pushed to a client. Empty fields match
// everything.
type SubscribeParams struct {
	SessionID string   `json:"session_id,omitempty"`
	Events    []string `json:"events,omitempty"`
}

// CaptureParams address a capture session. Wait makes open_capture return
// only once the session settled in ready or error.
type CaptureParams struct {
	SessionID string `json:"session_id,omitempty"`
	Wait      bool   `json:"wait,omitempty"`
}

// FeedParams select a feed by mood or free-text query.
type FeedParams struct {
	Mood  string `json:"mood,omitempty"`
	Query string `json:"q,omitempty"`
}

// DecodeParams unmarshals request params into T. Absent params yield the zero value.
func DecodeParams[T any](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("invalid params: %w", err)
	}
	return p, nil
}

// Filter decides which bus events reach a client.
type Filter struct {
	SessionID string
	Events    []string
}

// FilterFromQuery reads ?session_id= and a comma separated ?events= list.
func FilterFromQuery(q url.Values) Filter {
	f := Filter{SessionID: q.Get("session_id")}
	for _, e := range strings.Split(q.Get("events"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			f.Events = append(f.Events, e)
		}
	}
	return f
}

// Match reports whether an event of the given type and session passes.
// Events without a session are delivered to every client.
func (f Filter) Match(eventType, sessionID string) bool {
	if len(f.Events) > 0 && !slices.Contains(f.Events, eventType) {
		return false
	}
	return f.SessionID == "" || sessionID == "" || f.SessionID == sessionID
}

// Encode serializes the frame.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFrame deserializes JSON bytes into a Frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(data, &f)
	return f, err
}

// NewEventFrame creates a Frame for broadcasting an event.
func NewEventFrame(event string, sessionID string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:      FrameTypeEvent,
		Event:     event,
		SessionID: sessionID,
		Payload:   data,
	}, nil
}

// NewResponseFrame creates a response Frame.
func NewResponseFrame(id string, ok bool, payload any, errMsg string) (Frame, error) {
	f := Frame{
		Type:  FrameTypeResponse,
		ID:    id,
		OK:    &ok,
		Error: errMsg,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Frame{}, err
		}
		f.Payload = data
	}
	return f, nil
}
