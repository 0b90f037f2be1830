package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/openscreen/internal/screening"
	"github.com/wonny/openscreen/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is one frame sent to stream clients
type StreamMessage struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Event     *screening.Event `json:"event,omitempty"`
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *StreamHub
}

// StreamHub fans session events out to websocket clients
type StreamHub struct {
	clients    map[*streamClient]bool
	broadcast  chan []byte
	register   chan *streamClient
	unregister chan *streamClient
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logger.Logger
}

// NewStreamHub creates a hub; call Run before serving clients
func NewStreamHub(log *logger.Logger) *StreamHub {
	return &StreamHub{
		clients:    make(map[*streamClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run dispatches registrations and broadcasts until Stop
func (h *StreamHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow client: drop it
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and disconnects every client
func (h *StreamHub) Stop() {
	close(h.done)
}

// Publish broadcasts a session event. Never blocks; drops when the buffer is full.
func (h *StreamHub) Publish(ev screening.Event) {
	data, err := json.Marshal(StreamMessage{Type: "EVENT", Timestamp: time.Now(), Event: &ev})
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal stream event")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Stream broadcast buffer full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the connection and registers a client
// GET /api/stream
func (h *StreamHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade stream connection")
		return
	}

	client := &streamClient{conn: conn, send: make(chan []byte, 64), hub: h}

	// queue the greeting before registering so it is the first frame
	if data, err := json.Marshal(StreamMessage{Type: "CONNECTED", Timestamp: time.Now()}); err == nil {
		client.send <- data
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only handles control frames; clients send nothing
func (c *streamClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("Stream read error")
			}
			return
		}
	}
}
