package events

import (
	"slices"
	"sync"
)

// RingBuffer is a circular buffer for storing recent events.
type RingBuffer struct {
	mu     sync.RWMutex
	events []Event
	size   int
	pos    int
	count  int
}

// NewRingBuffer creates a new ring buffer.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		events: make([]Event, size),
		size:   size,
	}
}

// Add stores an event, overwriting the oldest one when full.
func (r *RingBuffer) Add(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.pos] = event
	r.pos = (r.pos + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// Get returns up to n of the most recent events, oldest first.
func (r *RingBuffer) Get(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Event, n)
	start := (r.pos - n + r.size) % r.size
	for i := 0; i < n; i++ {
		result[i] = r.events[(start+i)%r.size]
	}
	return result
}

// Select returns up to n of the most recent events accepted by match, oldest
// first. n <= 0 means no limit.
func (r *RingBuffer) Select(match func(Event) bool, n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var picked []Event
	for i := 0; i < r.count; i++ {
		e := r.events[(r.pos-1-i+2*r.size)%r.size]
		if !match(e) {
			continue
		}
		picked = append(picked, e)
		if n > 0 && len(picked) == n {
			break
		}
	}
	slices.Reverse(picked)
	return picked
}
