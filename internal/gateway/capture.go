package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/feed"
	"github.com/dohr-michael/moodstream/internal/gateway/ws"
	"github.com/dohr-michael/moodstream/internal/mood"
	"github.com/dohr-michael/moodstream/internal/sessions"
	"github.com/dohr-michael/moodstream/internal/youtube"
)

// openSession creates a session and runs its Open. With wait false, Open
// runs in the background and the idle snapshot is returned.
func (s *Server) openSession(ctx context.Context, wait bool) (sessions.Session, error) {
	ctrl := s.sessions.Create(sessions.Hooks{})
	// The workflow outlives the request that started it.
	bg := context.WithoutCancel(ctx)

	if !wait {
		go func() {
			if err := ctrl.Open(bg); err != nil {
				s.logger.Debug("open capture", "session", ctrl.ID(), "error", err)
			}
		}()
		return s.sessions.Get(ctrl.ID())
	}

	if err := ctrl.Open(bg); err != nil {
		return sessions.Session{}, err
	}
	return s.sessions.Get(ctrl.ID())
}

func (s *Server) shot(ctx context.Context, id string) (sessions.Session, error) {
	ctrl, err := s.sessions.Controller(id)
	if err != nil {
		return sessions.Session{}, err
	}
	if err := ctrl.Capture(context.WithoutCancel(ctx)); err != nil {
		return sessions.Session{}, err
	}
	return s.sessions.Get(id)
}

func (s *Server) reset(id string) (sessions.Session, error) {
	ctrl, err := s.sessions.Controller(id)
	if err != nil {
		return sessions.Session{}, err
	}
	if err := ctrl.Reset(); err != nil {
		return sessions.Session{}, err
	}
	return s.sessions.Get(id)
}

func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleCreateCapture(w http.ResponseWriter, r *http.Request) {
	wait := r.URL.Query().Get("wait") == "true"
	sess, err := s.openSession(r.Context(), wait)
	if err != nil {
		writeCaptureError(w, err)
		return
	}
	status := http.StatusAccepted
	if wait {
		status = http.StatusCreated
	}
	writeJSON(w, status, sess)
}

func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleShot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.shot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.reset(chi.URLParam(r, "id"))
	if err != nil {
		writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCloseCapture(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(chi.URLParam(r, "id"), "client"); err != nil {
		writeCaptureError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeCaptureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, capture.ErrNotReady),
		errors.Is(err, capture.ErrNotIdle),
		errors.Is(err, capture.ErrNotResettable),
		errors.Is(err, capture.ErrClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type moodJSON struct {
	Label   mood.Label `json:"label"`
	Emoji   string     `json:"emoji"`
	Queries []string   `json:"queries"`
}

func moodList() []moodJSON {
	labels := mood.Labels()
	out := make([]moodJSON, len(labels))
	for i, l := range labels {
		out[i] = moodJSON{Label: l, Emoji: l.Emoji(), Queries: mood.Queries(l)}
	}
	return out
}

func (s *Server) handleMoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, moodList())
}

func (s *Server) loadFeed(ctx context.Context, label, query string) (feed.Feed, error) {
	req := feed.Request{Query: query}
	if label != "" {
		l, err := mood.ParseLabel(label)
		if err != nil {
			return feed.Feed{}, err
		}
		req.Mood = l
	}
	return s.feed.Load(ctx, req)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := s.loadFeed(r.Context(), q.Get("mood"), q.Get("q"))
	if err != nil {
		writeFeedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func writeFeedError(w http.ResponseWriter, err error) {
	var apiErr *youtube.APIError
	switch {
	case errors.Is(err, mood.ErrUnknownLabel):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, youtube.ErrMissingKey):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, apiErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// HandleRequest serves WebSocket requests.
func (s *Server) HandleRequest(ctx context.Context, method ws.Method, params json.RawMessage) (any, error) {
	if method == ws.MethodLoadFeed {
		p, err := ws.DecodeParams[ws.FeedParams](params)
		if err != nil {
			return nil, err
		}
		return s.loadFeed(ctx, p.Mood, p.Query)
	}

	p, err := ws.DecodeParams[ws.CaptureParams](params)
	if err != nil {
		return nil, err
	}
	switch method {
	case ws.MethodOpenCapture:
		return s.openSession(ctx, p.Wait)
	case ws.MethodCapture:
		return s.shot(ctx, p.SessionID)
	case ws.MethodResetCapture:
		return s.reset(p.SessionID)
	case ws.MethodCloseCapture:
		if err := s.sessions.Close(p.SessionID, "client"); err != nil {
			return nil, err
		}
		return map[string]string{"session_id": p.SessionID, "status": string(sessions.SessionClosed)}, nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}
