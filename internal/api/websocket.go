// WebSocket push surface: clients subscribe to run ids and receive status
// snapshots on every step transition, complementing the polling contract.

package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vibetrading/sim-backend/pkg/types"
	"go.uber.org/zap"
)

// MessageType defines WebSocket message types.
type MessageType string

const (
	MsgTypeRunUpdate MessageType = "run_update"
	MsgTypeHeartbeat MessageType = "heartbeat"
	MsgTypeSubscribe MessageType = "subscribe"
)

// WSMessage is a WebSocket message envelope.
type WSMessage struct {
	Type      MessageType     `json:"type"`
	RunID     string          `json:"runId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Client is one WebSocket connection with its run subscriptions.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]bool
}

// Hub manages WebSocket connections and run-update fan-out.
type Hub struct {
	logger     *zap.Logger
	register   chan *Client
	unregister chan *Client
	updates    chan types.RunStatus
	done       chan struct{}
	closeOnce  sync.Once

	clients map[*Client]bool
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		updates:    make(chan types.RunStatus, 256),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Publish queues a run status snapshot for fan-out. Never blocks the
// pipeline; when the hub is backed up the update is dropped, the next
// poll will carry it anyway.
func (h *Hub) Publish(status types.RunStatus) {
	select {
	case h.updates <- status:
	default:
	}
}

// Run processes registrations and updates until Close.
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			for c := range h.clients {
				c.conn.Close()
			}
			return
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case status := <-h.updates:
			h.broadcast(status)
		case <-ticker.C:
			h.heartbeat()
		}
	}
}

// Close shuts the hub down.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) broadcast(status types.RunStatus) {
	data, err := json.Marshal(status)
	if err != nil {
		h.logger.Error("Failed to marshal run status", zap.Error(err))
		return
	}
	msg, _ := json.Marshal(WSMessage{
		Type:      MsgTypeRunUpdate,
		RunID:     status.RunID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})

	for c := range h.clients {
		if !c.subscribed(status.RunID) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// Slow client; drop it rather than stall the hub.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) heartbeat() {
	msg, _ := json.Marshal(WSMessage{Type: MsgTypeHeartbeat, Timestamp: time.Now().Unix()})
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (c *Client) subscribed(runID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[runID]
}

// handleWebSocket upgrades the connection and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		subs: make(map[string]bool),
	}
	s.hub.register <- client

	go client.writePump()
	go client.readPump(s.hub)
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == MsgTypeSubscribe && msg.RunID != "" {
			c.mu.Lock()
			c.subs[msg.RunID] = true
			c.mu.Unlock()
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
