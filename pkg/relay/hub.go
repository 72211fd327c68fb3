// Package relay streams scan and unfollow progress to WebSocket clients and
// serves the metrics and health endpoints next to it.
package relay

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"followscope/pkg/logger"
	"followscope/pkg/scanner"
	"followscope/pkg/unfollower"
)

const (
	EventConnected        = "connected"
	EventScanProgress     = "scan_progress"
	EventUnfollowProgress = "unfollow_progress"
	EventPong             = "pong"

	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// Message is the envelope for every frame sent to clients
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// UnfollowEvent is the payload of an unfollow_progress frame
type UnfollowEvent struct {
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Handle string `json:"handle"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected clients. The last frame of each event
// type is replayed to clients that join mid-run.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	last     map[string][]byte
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHub creates a hub accepting connections from allowedOrigins. An empty
// list or "*" accepts any origin.
func NewHub(allowedOrigins []string, log logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNopLogger()
	}
	h := &Hub{
		clients: make(map[*client]struct{}),
		last:    make(map[string][]byte),
		logger:  log,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 || set["*"] {
			return true
		}
		return set[origin]
	}
}

// Broadcast sends an event to every client. Clients whose buffer is full
// are dropped.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	frame, err := json.Marshal(Message{Type: eventType, Data: data})
	if err != nil {
		h.logger.WithError(err).WarnWithFields("failed to encode event", map[string]interface{}{"type": eventType})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[eventType] = frame
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.removeLocked(c)
			h.logger.Warn("dropping slow relay client")
		}
	}
}

// ScanProgress returns a progress callback that broadcasts scan snapshots
func (h *Hub) ScanProgress() scanner.ProgressFunc {
	return func(p scanner.Progress) {
		if p.Err != nil && p.Message == "" {
			p.Message = p.Err.Error()
		}
		h.Broadcast(EventScanProgress, p)
	}
}

// UnfollowProgress returns a progress callback that broadcasts unfollow steps
func (h *Hub) UnfollowProgress() unfollower.ProgressFunc {
	return func(index, total int, handle string) {
		h.Broadcast(EventUnfollowProgress, UnfollowEvent{Index: index, Total: total, Handle: handle})
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	welcome, _ := json.Marshal(Message{Type: EventConnected, Data: map[string]string{"status": "connected"}})
	c.send <- welcome

	h.mu.Lock()
	for _, frame := range h.last {
		select {
		case c.send <- frame:
		default:
		}
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.DebugWithFields("relay client connected", map[string]interface{}{"remote": r.RemoteAddr})

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		h.removeLocked(c)
		h.mu.Unlock()
		c.conn.Close()
	}()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			frame, _ := json.Marshal(Message{Type: EventPong, Data: "ok"})
			h.mu.RLock()
			_, ok := h.clients[c]
			if ok {
				select {
				case c.send <- frame:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}

// removeLocked must be called with h.mu held
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
