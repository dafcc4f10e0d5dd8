package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/events"
	"github.com/dohr-michael/moodstream/internal/history"
	"github.com/dohr-michael/moodstream/internal/mood"
)

// ErrNotFound is returned for an unknown session ID.
var ErrNotFound = errors.New("session not found")

// Recorder stores detections.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Config is what every new controller is built from.
type Config struct {
	Classifier capture.Classifier
	Device     capture.Device
	DeviceName string
	Profiles   []capture.Profile
	Policy     *mood.Policy

	MaxAttempts      int
	DisplayDelay     time.Duration
	AcquireTimeout   time.Duration
	InferenceTimeout time.Duration

	Bus     *events.Bus
	History Recorder
	Logger  *slog.Logger
}

// Hooks are extra callbacks for a single session, run after the bus and
// history have been updated.
type Hooks struct {
	OnChange   func(capture.State)
	OnDetected func(capture.Detection)
}

type entry struct {
	ctrl *capture.Controller
	meta Session
}

// Manager owns the live capture controllers, keyed by session ID.
type Manager struct {
	mu      sync.RWMutex
	cfg     Config
	entries map[string]*entry
	logger  *slog.Logger
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:     cfg,
		entries: make(map[string]*entry),
		logger:  logger.With("system", "sessions"),
	}
}

// Reconfigure replaces the config used for sessions created from now on.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.Logger == nil {
		cfg.Logger = m.cfg.Logger
	}
	m.cfg = cfg
}

// Create builds an idle controller for a new session. The caller opens it.
func (m *Manager) Create(hooks Hooks) *capture.Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.cfg
	now := time.Now()
	e := &entry{}

	var id string
	ctrl := capture.New(capture.Options{
		Classifier:       cfg.Classifier,
		Device:           cfg.Device,
		Profiles:         cfg.Profiles,
		Policy:           cfg.Policy,
		MaxAttempts:      cfg.MaxAttempts,
		DisplayDelay:     cfg.DisplayDelay,
		AcquireTimeout:   cfg.AcquireTimeout,
		InferenceTimeout: cfg.InferenceTimeout,
		Logger:           cfg.Logger,
		OnChange: func(s capture.State) {
			m.stateChanged(id, s, cfg.Bus)
			if hooks.OnChange != nil {
				hooks.OnChange(s)
			}
		},
		OnDetected: func(d capture.Detection) {
			m.detected(d, cfg)
			if hooks.OnDetected != nil {
				hooks.OnDetected(d)
			}
		},
	})
	id = ctrl.ID()

	e.ctrl = ctrl
	e.meta = Session{
		ID:          id,
		Device:      cfg.DeviceName,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      SessionActive,
		State:       ctrl.State(),
		MaxAttempts: ctrl.MaxAttempts(),
	}
	m.entries[id] = e

	m.logger.Info("capture session created", "session", id, "device", cfg.DeviceName)
	publish(cfg.Bus, id, events.SessionCreatedPayload{Device: cfg.DeviceName})
	return ctrl
}

// Controller returns the controller for a session.
func (m *Manager) Controller(id string) (*capture.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.ctrl, nil
}

// Get returns a snapshot of a session.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return e.meta, nil
}

// List returns all live sessions, most recently updated first.
func (m *Manager) List() []Session {
	m.mu.RLock()
	out := make([]Session, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.meta)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Close closes and forgets a session.
func (m *Manager) Close(id, reason string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	bus := m.cfg.Bus
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	err := e.ctrl.Close()
	m.logger.Info("capture session closed", "session", id, "reason", reason)
	publish(bus, id, events.SessionClosedPayload{Reason: reason})
	return err
}

// CloseIdle closes sessions that have not changed for longer than maxAge.
func (m *Manager) CloseIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	var stale []string
	m.mu.RLock()
	for id, e := range m.entries {
		if e.meta.UpdatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		_ = m.Close(id, "idle")
	}
	return len(stale)
}

// CloseAll closes every session.
func (m *Manager) CloseAll(reason string) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.Close(id, reason)
	}
}

func (m *Manager) stateChanged(id string, s capture.State, bus *events.Bus) {
	m.mu.Lock()
	e, ok := m.entries[id]
	var attempts, maxAttempts int
	if ok {
		e.meta.State = s
		e.meta.UpdatedAt = time.Now()
		e.meta.Attempts = e.ctrl.Attempts()
		if l, detected := s.Label(); detected {
			e.meta.Label = l
		}
		attempts, maxAttempts = e.meta.Attempts, e.meta.MaxAttempts
	}
	m.mu.Unlock()

	payload := events.MoodStatePayload{
		Phase:       s.Phase().String(),
		Message:     s.Message(),
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
	}
	if l, ok := s.Label(); ok {
		payload.Label = string(l)
	}
	if f, ok := s.Failure(); ok {
		payload.ErrorKind = f.Kind.String()
		payload.Resettable = f.Resettable()
	}
	publish(bus, id, payload)
}

func (m *Manager) detected(d capture.Detection, cfg Config) {
	scores := make(map[string]float64, len(d.Scores))
	for e, s := range d.Scores {
		scores[string(e)] = s
	}
	publish(cfg.Bus, d.SessionID, events.MoodDetectedPayload{
		Label:      string(d.Decision.Label),
		Expression: string(d.Decision.Expression),
		Score:      d.Decision.Score,
		Fallback:   d.Decision.Fallback,
		Scores:     scores,
	})

	if cfg.History == nil {
		return
	}
	_, err := cfg.History.Record(context.Background(), history.Entry{
		SessionID:  d.SessionID,
		Label:      d.Decision.Label,
		Expression: d.Decision.Expression,
		Score:      d.Decision.Score,
		Fallback:   d.Decision.Fallback,
		Scores:     d.Scores,
		DetectedAt: d.DetectedAt,
	})
	if err != nil {
		m.logger.Warn("record detection", "session", d.SessionID, "error", err)
	}
}

func publish(bus *events.Bus, sessionID string, payload events.EventPayload) {
	if bus == nil {
		return
	}
	bus.Publish(events.NewTypedEventWithSession(events.SourceCapture, payload, sessionID))
}
