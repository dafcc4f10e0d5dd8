// Package events carries workflow, feed and session notifications between
// the capture controllers, the gateway and its clients.
package events

import (
	"slices"
	"sync"
)

// Subscriber is a function that receives events.
type Subscriber func(Event)

// subscription delivers matching events to its handler from a single
// goroutine, so a subscriber sees events in publish order. When its queue is
// full new events are dropped for that subscriber only.
type subscription struct {
	query   Query
	handler Subscriber
	queue   chan Event
	stop    chan struct{}
	exited  chan struct{}
	once    sync.Once
}

func (s *subscription) run() {
	defer close(s.exited)
	for {
		select {
		case e := <-s.queue:
			s.handler(e)
		case <-s.stop:
			return
		}
	}
}

func (s *subscription) offer(e Event) {
	select {
	case s.queue <- e:
	default:
	}
}

func (s *subscription) cancel() {
	s.once.Do(func() { close(s.stop) })
}

// Bus is an in-memory publish/subscribe hub that also keeps the most recent
// events for late readers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	eventChan   chan Event
	bufferSize  int
	ringBuffer  *RingBuffer
	closed      bool
	done        chan struct{}
}

// NewBus creates a new event bus. bufferSize bounds the publish queue, each
// subscriber queue and the history.
func NewBus(bufferSize int) *Bus {
	bufferSize = max(bufferSize, 1)
	b := &Bus{
		subscribers: make(map[int]*subscription),
		eventChan:   make(chan Event, bufferSize),
		bufferSize:  bufferSize,
		ringBuffer:  NewRingBuffer(bufferSize),
		done:        make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	for {
		select {
		case event, ok := <-b.eventChan:
			if !ok {
				return
			}
			b.ringBuffer.Add(event)
			b.fanOut(event)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) fanOut(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.query.Match(event) {
			sub.offer(event)
		}
	}
}

// Publish sends an event to the bus. The event is dropped when the bus is
// closed or its buffer is full.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	select {
	case b.eventChan <- event:
	default:
	}
}

func (b *Bus) subscribe(q Query, handler Subscriber) *subscription {
	sub := &subscription{
		query:   q,
		handler: handler,
		queue:   make(chan Event, b.bufferSize),
		stop:    make(chan struct{}),
		exited:  make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.cancel()
		close(sub.exited)
		return sub
	}
	id := b.nextID
	b.nextID++
	b.subscribers[id] = sub
	go sub.run()
	return sub
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	for id, s := range b.subscribers {
		if s == sub {
			delete(b.subscribers, id)
			break
		}
	}
	b.mu.Unlock()
	sub.cancel()
}

// Subscribe registers a handler for specific event types (all types when
// none are given). The returned function unsubscribes; it may be called from
// inside the handler.
func (b *Bus) Subscribe(handler Subscriber, eventTypes ...EventType) func() {
	sub := b.subscribe(Query{Types: eventTypes}, handler)
	return func() { b.remove(sub) }
}

// SubscribeChan returns a channel that receives events. The channel is
// closed by the returned function. Events are dropped when it is full.
func (b *Bus) SubscribeChan(bufSize int, eventTypes ...EventType) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	sub := b.subscribe(Query{Types: eventTypes}, func(e Event) {
		select {
		case ch <- e:
		default:
		}
	})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.remove(sub)
			<-sub.exited
			close(ch)
		})
	}
}

// History returns recent events from the ring buffer.
func (b *Bus) History(limit int) []Event {
	return b.ringBuffer.Get(limit)
}

// Query selects recent events. Zero fields match everything.
type Query struct {
	SessionID string
	Types     []EventType
	Limit     int
}

// Match reports whether e satisfies the query filters (Limit aside).
func (q Query) Match(e Event) bool {
	if q.SessionID != "" && e.SessionID != q.SessionID {
		return false
	}
	return len(q.Types) == 0 || slices.Contains(q.Types, e.Type)
}

// Find returns the most recent events matching q, oldest first.
func (b *Bus) Find(q Query) []Event {
	return b.ringBuffer.Select(q.Match, q.Limit)
}

// Close shuts down the event bus.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.done)
	close(b.eventChan)
	for id, sub := range b.subscribers {
		sub.cancel()
		delete(b.subscribers, id)
	}
}
