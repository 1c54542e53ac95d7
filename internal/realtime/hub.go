// Package realtime pushes dashboard updates to browsers over WebSockets.
// Every connected client receives every message; a client that connects
// late is sent the current message first.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one connected browser.
type Client struct {
	ID   string
	Send chan []byte
}

// NewClient creates a client with a buffered send queue.
func NewClient() *Client {
	return &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, sendBuffer),
	}
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	last    []byte
	replay  func() (interface{}, bool)

	onCount func(int)
	logger  zerolog.Logger
}

// NewHub creates a hub. onCount, if not nil, is called with the number of
// connected clients whenever it changes.
func NewHub(logger zerolog.Logger, onCount func(int)) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		onCount: onCount,
		logger:  logger.With().Str("component", "realtime_hub").Logger(),
	}
}

// SetReplay sets the source of the message a new client receives first.
// fn reports false when there is nothing to send yet. Without a replay
// source the last broadcast is repeated.
func (h *Hub) SetReplay(fn func() (interface{}, bool)) {
	h.mu.Lock()
	h.replay = fn
	h.mu.Unlock()
}

// Register adds a client and queues the current message for it.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if first := h.current(); first != nil {
		select {
		case c.Send <- first:
		default:
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Str("client_id", c.ID).Int("clients", n).Msg("client connected")
	h.counted(n)
}

// Unregister removes a client and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.Send)
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Str("client_id", c.ID).Int("clients", n).Msg("client disconnected")
	h.counted(n)
}

// Broadcast encodes v as JSON, remembers it for clients that connect later
// and queues it for every connected client. Clients whose queue is full
// miss the message.
func (h *Hub) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = data
	for c := range h.clients {
		select {
		case c.Send <- data:
		default:
			h.logger.Warn().Str("client_id", c.ID).Msg("client queue full, dropping message")
		}
	}
}

// current returns the message for a newly registered client. Must be called
// with mu held.
func (h *Hub) current() []byte {
	if h.replay == nil {
		return h.last
	}

	v, ok := h.replay()
	if !ok {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode replay")
		return nil
	}
	return data
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) counted(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}

// Handler upgrades HTTP requests to WebSocket connections served by a hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates the /ws handler. Browsers are accepted from the
// same host or from one of allowedOrigins ("*" allows any).
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.hub.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient()
	h.hub.Register(client)

	go writePump(client, conn)
	go readPump(h.hub, client, conn)
}

// readPump drains the connection until it closes. Browsers only send
// control frames.
func readPump(hub *Hub, c *Client, conn *websocket.Conn) {
	defer func() {
		hub.Unregister(c)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
