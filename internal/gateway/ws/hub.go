// Package ws bridges the event bus to WebSocket clients and forwards their
// requests to the gateway.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/dohr-michael/moodstream/internal/events"
)

const sendBuffer = 256

// RequestHandler executes a client request and returns the response payload.
type RequestHandler interface {
	HandleRequest(ctx context.Context, method Method, params json.RawMessage) (any, error)
}

// Client is one connected WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mu     sync.RWMutex
	filter Filter
}

func (c *Client) wants(e events.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.Match(string(e.Type), e.SessionID)
}

func (c *Client) setFilter(f Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

// Hub fans bus events out to clients.
type Hub struct {
	handler RequestHandler
	logger  *slog.Logger
	origins []string

	mu          sync.RWMutex
	clients     map[*Client]struct{}
	unsubscribe func()
}

// NewHub creates a hub subscribed to every event on bus. handler may be nil,
// in which case only subscribe requests are served.
func NewHub(bus *events.Bus, handler RequestHandler, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		handler: handler,
		logger:  logger,
		origins: []string{"localhost:*", "127.0.0.1:*"},
		clients: make(map[*Client]struct{}),
	}
	h.unsubscribe = bus.Subscribe(h.publish)
	return h
}

func (h *Hub) publish(e events.Event) {
	frame, err := NewEventFrame(string(e.Type), e.SessionID, e)
	if err != nil {
		h.logger.Error("marshal event frame", "event", e.Type, "error", err)
		return
	}
	data, err := frame.Encode()
	if err != nil {
		h.logger.Error("encode frame", "event", e.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(e) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("ws client lagging, event dropped", "event", e.Type)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.logger.Info("ws client connected", "clients", len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Info("ws client disconnected", "clients", len(h.clients))
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
// The initial filter comes from the query string (see FilterFromQuery).
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Error("ws accept", "error", err)
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
		filter: FilterFromQuery(r.URL.Query()),
	}
	h.register(client)

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	logger := c.hub.logger
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				logger.Debug("ws read closed", "status", status)
			} else {
				logger.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			logger.Warn("ws bad frame", "error", err)
			continue
		}
		if frame.Type != FrameTypeRequest {
			logger.Debug("ws unexpected frame type", "type", frame.Type)
			continue
		}
		c.handleRequest(ctx, frame)
	}
}

func (c *Client) handleRequest(ctx context.Context, frame Frame) {
	method := Method(frame.Method)

	if method == MethodSubscribe {
		p, err := DecodeParams[SubscribeParams](frame.Params)
		if err != nil {
			c.reply(frame.ID, nil, err)
			return
		}
		c.setFilter(Filter(p))
		c.reply(frame.ID, p, nil)
		return
	}

	if c.hub.handler == nil {
		c.reply(frame.ID, nil, errUnknownMethod(frame.Method))
		return
	}

	// Capture requests block on the camera and the model; keep reading.
	go func() {
		result, err := c.hub.handler.HandleRequest(ctx, method, frame.Params)
		c.reply(frame.ID, result, err)
	}()
}

func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) reply(id string, payload any, err error) {
	var (
		f    Frame
		ferr error
	)
	if err != nil {
		f, ferr = NewResponseFrame(id, false, nil, err.Error())
	} else {
		f, ferr = NewResponseFrame(id, true, payload, "")
	}
	if ferr != nil {
		c.hub.logger.Error("build response frame", "id", id, "error", ferr)
		return
	}
	data, ferr := f.Encode()
	if ferr != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, live := c.hub.clients[c]; !live {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close shuts down the hub and all client connections.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.clients, c)
	}
}

type errUnknownMethod string

func (e errUnknownMethod) Error() string { return "unknown method: " + string(e) }
