package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crestline/perf/internal/performance"
	"github.com/crestline/perf/pkg/logger"
)

// Timing
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 4
)

// MessageType tags stream frames
const MessageTypeStatistics = "statistics"

// Message is one frame pushed to clients
type Message struct {
	Type      string                  `json:"type"`
	Data      *performance.Statistics `json:"data"`
	Timestamp time.Time               `json:"timestamp"`
}

// Provider supplies the statistics sent on connect
type Provider interface {
	Statistics(ctx context.Context, q performance.Query) (*performance.Statistics, error)
}

// Hub pushes statistics to websocket clients: once on connect and again
// after every refresh
// ⭐ SSOT: all websocket connections are owned here
type Hub struct {
	provider Provider
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates a new hub
func NewHub(provider Provider, log *logger.Logger) *Hub {
	return &Hub{
		provider: provider,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Read-only public data: any origin may subscribe
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log,
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and sends the current statistics
// GET /ws/statistics
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}

	go h.writePump(c)

	st, err := h.provider.Statistics(r.Context(), performance.DefaultQuery())
	if err != nil {
		h.logger.WithError(err).Warn("Initial statistics unavailable")
	} else if frame, err := encode(st); err == nil {
		h.deliver(c, frame)
	}

	h.readPump(c)
}

// Broadcast sends st to every client. Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(st *performance.Statistics) {
	frame, err := encode(st)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode statistics frame")
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	count := len(h.clients)
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}

	h.logger.WithFields(map[string]interface{}{
		"clients": count,
		"dropped": len(slow),
	}).Debug("Broadcast statistics")
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// deliver sends to one client if it is still registered
func (h *Hub) deliver(c *client, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.once.Do(func() { close(c.send) })
	}
}

// readPump discards client messages and detects disconnects
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(st *performance.Statistics) ([]byte, error) {
	return json.Marshal(Message{
		Type:      MessageTypeStatistics,
		Data:      st,
		Timestamp: time.Now().UTC(),
	})
}
