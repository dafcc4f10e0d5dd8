package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventMoodDetected)

	bus.Publish(NewTypedEvent(SourceCapture, MoodDetectedPayload{Label: "happy"}))
	bus.Publish(NewTypedEvent(SourceCapture, MoodStatePayload{Phase: "ready"}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventMoodDetected {
		t.Errorf("expected mood.detected, got %s", received[0].Type)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewTypedEvent(SourceFeed, FeedLoadedPayload{Query: "lo-fi music"}))
	bus.Publish(NewTypedEvent(SourceCapture, MoodStatePayload{Phase: "detecting"}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0
	unsub := bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	unsub()

	bus.Publish(NewTypedEvent(SourceGateway, SessionClosedPayload{}))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("expected no delivery after unsubscribe, got %d", count)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(NewEvent(EventMoodState, SourceCapture, map[string]any{"i": i}))
	}

	events := rb.Get(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if got := events[0].Payload["i"]; got != 2 {
		t.Errorf("oldest kept event = %v, want 2", got)
	}
	if got := events[2].Payload["i"]; got != 4 {
		t.Errorf("newest event = %v, want 4", got)
	}
}

func TestRingBufferSelect(t *testing.T) {
	rb := NewRingBuffer(4)
	for i := 0; i < 6; i++ {
		typ := EventMoodState
		if i%2 == 1 {
			typ = EventFeedLoaded
		}
		rb.Add(NewEvent(typ, SourceCapture, map[string]any{"i": i}))
	}

	states := rb.Select(func(e Event) bool { return e.Type == EventMoodState }, 0)
	if len(states) != 2 || states[0].Payload["i"] != 2 || states[1].Payload["i"] != 4 {
		t.Fatalf("states = %v", states)
	}
	last := rb.Select(func(Event) bool { return true }, 1)
	if len(last) != 1 || last[0].Payload["i"] != 5 {
		t.Fatalf("last = %v", last)
	}
}

func TestQueryMatch(t *testing.T) {
	e := NewTypedEventWithSession(SourceCapture, MoodStatePayload{Phase: "ready"}, "s1")
	tests := []struct {
		q    Query
		want bool
	}{
		{Query{}, true},
		{Query{SessionID: "s1"}, true},
		{Query{SessionID: "s2"}, false},
		{Query{Types: []EventType{EventMoodState, EventMoodDetected}}, true},
		{Query{Types: []EventType{EventFeedLoaded}}, false},
	}
	for _, tt := range tests {
		if got := tt.q.Match(e); got != tt.want {
			t.Errorf("%+v.Match = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, EventFeedFailed)
	defer unsub()

	bus.Publish(NewTypedEvent(SourceFeed, FeedFailedPayload{Query: "cats", Error: "quota"}))

	select {
	case e := <-ch:
		if e.Type != EventFeedFailed {
			t.Errorf("expected feed.failed, got %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewBus(4)
	bus.Close()
	bus.Close()

	bus.Publish(NewTypedEvent(SourceCapture, MoodStatePayload{}))

	ch, unsub := bus.SubscribeChan(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Error("channel from a closed bus should be closed after unsubscribe")
	}
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(64, EventMoodState)
	defer unsub()

	phases := []string{"initializing", "detecting", "displaying", "ready"}
	for _, p := range phases {
		bus.Publish(NewTypedEvent(SourceCapture, MoodStatePayload{Phase: p}))
	}

	for i, want := range phases {
		select {
		case e := <-ch:
			p, ok := ExtractPayload[MoodStatePayload](e)
			if !ok || p.Phase != want {
				t.Fatalf("event %d = %+v, want phase %s", i, e.Payload, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}
}

func TestUnsubscribeFromHandler(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	var (
		mu    sync.Mutex
		count int
		unsub func()
	)
	got := make(chan struct{}, 4)
	mu.Lock()
	unsub = bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		u := unsub
		mu.Unlock()
		u()
		got <- struct{}{}
	})
	mu.Unlock()

	bus.Publish(NewTypedEvent(SourceGateway, SessionClosedPayload{}))
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}

	bus.Publish(NewTypedEvent(SourceGateway, SessionClosedPayload{}))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("handler ran %d times, want 1", count)
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	bus := NewBus(4)
	bus.Close()

	unsub := bus.Subscribe(func(Event) { t.Error("handler called on a closed bus") })
	unsub()
	unsub()

	_, unsubChan := bus.SubscribeChan(1, EventMoodState)
	unsubChan()
}
