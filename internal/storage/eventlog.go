// Package storage persists bus events for later inspection.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dohr-michael/moodstream/internal/events"
)

// EventLogger appends bus events to JSONL files, one file per capture
// session plus _global.jsonl for events without a session.
type EventLogger struct {
	dir         string
	mu          sync.Mutex
	unsubscribe func()
}

// NewEventLogger subscribes to every bus event and writes it under dir.
func NewEventLogger(dir string, bus *events.Bus) *EventLogger {
	el := &EventLogger{dir: dir}
	el.unsubscribe = bus.Subscribe(el.handleEvent)
	return el
}

// Close unsubscribes the logger from the event bus.
func (el *EventLogger) Close() {
	if el.unsubscribe != nil {
		el.unsubscribe()
	}
}

func (el *EventLogger) handleEvent(e events.Event) {
	_ = el.writeEvent(e)
}

func (el *EventLogger) writeEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()

	path := el.logPath(e.SessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// ReadSession returns the logged events of a session, oldest first. An empty
// ID reads the global log.
func (el *EventLogger) ReadSession(sessionID string) ([]events.Event, error) {
	el.mu.Lock()
	defer el.mu.Unlock()

	f, err := os.Open(el.logPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []events.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var e events.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return out, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, e)
	}
	return out, scanner.Err()
}

func (el *EventLogger) logPath(sessionID string) string {
	if sessionID == "" {
		return filepath.Join(el.dir, "_global.jsonl")
	}
	return filepath.Join(el.dir, filepath.Base(sessionID)+".jsonl")
}
