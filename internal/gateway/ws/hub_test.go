package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/dohr-michael/moodstream/internal/events"
)

type echoHandler struct{}

func (echoHandler) HandleRequest(_ context.Context, method Method, params json.RawMessage) (any, error) {
	if method == MethodCloseCapture {
		return nil, errors.New("session not found")
	}
	return map[string]string{"method": string(method)}, nil
}

func httpHandler(h *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}

func dial(t *testing.T, hub *Hub, query string) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(httpHandler(hub))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	// Wait until the hub has registered the client.
	for i := 0; i < 200 && hub.ClientCount() == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	return conn, ctx
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) Frame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return f
}

func writeFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, f Frame) {
	t.Helper()
	data, _ := f.Encode()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHub_BroadcastsSessionEvents(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	hub := NewHub(bus, nil, nil)
	defer hub.Close()

	conn, ctx := dial(t, hub, "?session_id=mine")

	bus.Publish(events.NewTypedEventWithSession(events.SourceCapture, events.MoodStatePayload{Phase: "ready"}, "other"))
	bus.Publish(events.NewTypedEventWithSession(events.SourceCapture, events.MoodStatePayload{Phase: "detecting"}, "mine"))

	f := readFrame(t, ctx, conn)
	if f.Type != FrameTypeEvent || f.Event != string(events.EventMoodState) || f.SessionID != "mine" {
		t.Fatalf("unexpected frame %+v", f)
	}
	var e events.Event
	if err := json.Unmarshal(f.Payload, &e); err != nil {
		t.Fatal(err)
	}
	if e.Payload["phase"] != "detecting" {
		t.Fatalf("payload = %v", e.Payload)
	}
}

func TestHub_Requests(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	hub := NewHub(bus, echoHandler{}, nil)
	defer hub.Close()

	conn, ctx := dial(t, hub, "")

	writeFrame(t, ctx, conn, Frame{Type: FrameTypeRequest, ID: "1", Method: string(MethodCapture)})
	f := readFrame(t, ctx, conn)
	if f.ID != "1" || f.OK == nil || !*f.OK {
		t.Fatalf("unexpected response %+v", f)
	}

	writeFrame(t, ctx, conn, Frame{Type: FrameTypeRequest, ID: "2", Method: string(MethodCloseCapture)})
	f = readFrame(t, ctx, conn)
	if f.ID != "2" || f.OK == nil || *f.OK || f.Error != "session not found" {
		t.Fatalf("unexpected response %+v", f)
	}

	writeFrame(t, ctx, conn, Frame{Type: FrameTypeRequest, ID: "3", Method: string(MethodSubscribe), Params: json.RawMessage(`{"session_id":"x"}`)})
	f = readFrame(t, ctx, conn)
	if f.ID != "3" || f.OK == nil || !*f.OK {
		t.Fatalf("unexpected response %+v", f)
	}
}

func TestHub_EventTypeFilter(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	hub := NewHub(bus, nil, nil)
	defer hub.Close()

	conn, ctx := dial(t, hub, "?events=mood.detected")

	bus.Publish(events.NewTypedEvent(events.SourceFeed, events.FeedLoadedPayload{Query: "cats"}))
	time.Sleep(20 * time.Millisecond)
	bus.Publish(events.NewTypedEventWithSession(events.SourceCapture, events.MoodDetectedPayload{Label: "calm"}, "s1"))

	f := readFrame(t, ctx, conn)
	if f.Event != string(events.EventMoodDetected) {
		t.Fatalf("expected only mood.detected, got %+v", f)
	}
}

func TestHub_SubscribeChangesFilter(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	hub := NewHub(bus, nil, nil)
	defer hub.Close()

	conn, ctx := dial(t, hub, "")

	writeFrame(t, ctx, conn, Frame{Type: FrameTypeRequest, ID: "1", Method: string(MethodSubscribe), Params: json.RawMessage(`{"session_id":"mine"}`)})
	if f := readFrame(t, ctx, conn); f.ID != "1" || f.OK == nil || !*f.OK {
		t.Fatalf("unexpected response %+v", f)
	}

	bus.Publish(events.NewTypedEventWithSession(events.SourceCapture, events.MoodStatePayload{Phase: "ready"}, "theirs"))
	time.Sleep(20 * time.Millisecond)
	bus.Publish(events.NewTypedEventWithSession(events.SourceCapture, events.MoodStatePayload{Phase: "detecting"}, "mine"))

	f := readFrame(t, ctx, conn)
	if f.SessionID != "mine" {
		t.Fatalf("expected event for mine, got %+v", f)
	}
}
