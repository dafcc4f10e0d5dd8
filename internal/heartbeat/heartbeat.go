// Package heartbeat lets `moodstream status` tell whether a gateway is running
// and what its capture sessions are doing.
package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultInterval is how often a running gateway refreshes its heartbeat.
const DefaultInterval = 30 * time.Second

// Status represents the liveness state of the gateway.
type Status string

const (
	StatusAlive Status = "alive"
	StatusStale Status = "stale"
	StatusDead  Status = "dead"
)

// Snapshot is what the gateway reports about itself on every beat.
type Snapshot struct {
	Addr      string `json:"addr,omitempty"`
	Device    string `json:"device,omitempty"`
	Sessions  int    `json:"sessions"`
	Detecting int    `json:"detecting"`
	LastMood  string `json:"last_mood,omitempty"`
}

// Beat is the content of the heartbeat file.
type Beat struct {
	Snapshot
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// Uptime returns how long the gateway had been running at the time of the beat.
func (b Beat) Uptime() time.Duration {
	return b.Timestamp.Sub(b.StartedAt).Truncate(time.Second)
}

// Report is the outcome of reading a heartbeat file.
type Report struct {
	Status Status
	Beat   *Beat
	Age    time.Duration // time since the last beat; zero when dead
}

// Probe is called on every beat.
type Probe func() Snapshot

// Writer keeps a heartbeat file fresh while Run is active.
type Writer struct {
	path     string
	interval time.Duration
	probe    Probe
	logger   *slog.Logger
	now      func() time.Time
}

// NewWriter creates a writer for path. probe and logger may be nil.
func NewWriter(path string, probe Probe, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		path:     path,
		interval: DefaultInterval,
		probe:    probe,
		logger:   logger,
		now:      time.Now,
	}
}

// Run writes a beat immediately and then every interval until ctx is done,
// when the file is removed.
func (w *Writer) Run(ctx context.Context) {
	started := w.now()
	w.beat(started)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.beat(started)
		case <-ctx.Done():
			if err := os.Remove(w.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				w.logger.Warn("remove heartbeat", "path", w.path, "error", err)
			}
			return
		}
	}
}

func (w *Writer) beat(started time.Time) {
	b := Beat{PID: os.Getpid(), StartedAt: started, Timestamp: w.now()}
	if w.probe != nil {
		b.Snapshot = w.probe()
	}
	if err := write(w.path, b); err != nil {
		w.logger.Warn("write heartbeat", "path", w.path, "error", err)
	}
}

func write(path string, b Beat) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Read loads the heartbeat at path. A beat older than maxAge is stale; a
// missing file means no gateway is running.
func Read(path string, maxAge time.Duration) (Report, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Report{Status: StatusDead}, nil
	}
	if err != nil {
		return Report{Status: StatusDead}, fmt.Errorf("read heartbeat: %w", err)
	}

	var b Beat
	if err := json.Unmarshal(data, &b); err != nil {
		return Report{Status: StatusDead}, fmt.Errorf("decode heartbeat %s: %w", path, err)
	}

	r := Report{Status: StatusAlive, Beat: &b, Age: time.Since(b.Timestamp)}
	if r.Age > maxAge {
		r.Status = StatusStale
	}
	return r, nil
}
