// Package gateway serves the capture workflow, the video feed and the
// detection history over a local HTTP and WebSocket API.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/moodstream/internal/events"
	"github.com/dohr-michael/moodstream/internal/feed"
	"github.com/dohr-michael/moodstream/internal/gateway/ws"
	"github.com/dohr-michael/moodstream/internal/history"
	"github.com/dohr-michael/moodstream/internal/sessions"
)

// HistoryStore is the part of the detection log the gateway reads and prunes.
type HistoryStore interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Deps are the services exposed by the gateway. History may be nil.
type Deps struct {
	Bus      *events.Bus
	Sessions *sessions.Manager
	Feed     *feed.Service
	History  HistoryStore
	Logger   *slog.Logger
}

// Server is the MoodStream gateway HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	sessions   *sessions.Manager
	feed       *feed.Service
	history    HistoryStore
	logger     *slog.Logger
	host       string
	port       int

	mu   sync.RWMutex
	addr string
}

// NewServer creates a new gateway server.
func NewServer(deps Deps, host string, port int) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		bus:      deps.Bus,
		sessions: deps.Sessions,
		feed:     deps.Feed,
		history:  deps.History,
		logger:   logger,
		host:     host,
		port:     port,
	}
	s.hub = ws.NewHub(deps.Bus, s, logger.With("component", "ws"))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ws", s.hub.ServeWS)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/moods", s.handleMoods)
	r.Get("/api/feed", s.handleFeed)
	r.Get("/api/history", s.handleHistory)

	r.Route("/api/capture", func(r chi.Router) {
		r.Get("/", s.handleListCaptures)
		r.Post("/", s.handleCreateCapture)
		r.Get("/{id}", s.handleGetCapture)
		r.Post("/{id}/shot", s.handleShot)
		r.Post("/{id}/reset", s.handleReset)
		r.Delete("/{id}", s.handleCloseCapture)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the address the server listens on, once started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == "" {
		return s.httpServer.Addr
	}
	return s.addr
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("moodstream gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown closes every capture session and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.CloseAll("shutdown")
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.sessions.List()),
		"clients":  s.hub.ClientCount(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := events.Query{
		SessionID: r.URL.Query().Get("session_id"),
		Limit:     queryInt(r, "limit", 50),
	}
	for _, t := range strings.Split(r.URL.Query().Get("type"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			q.Types = append(q.Types, events.EventType(t))
		}
	}
	history := s.bus.Find(q)

	type eventJSON struct {
		ID        string             `json:"id"`
		SessionID string             `json:"session_id,omitempty"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			SessionID: e.SessionID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "detection history is disabled")
		return
	}
	entries, err := s.history.List(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
