package realtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 512 * 1024
	readTimeout    = 60 * time.Second
	writeTimeout   = 10 * time.Second
)

// Event is the envelope pushed to connected clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// client wraps a connection with a write lock. Gorilla connections support
// only one concurrent writer, and frames come from both Push callers and the
// ping handler on the read goroutine.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(event)
}

func (c *client) writeControl(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Hub tracks live websocket connections per user and pushes server-side
// events to them. A user may hold several connections (multiple tabs).
type Hub struct {
	mu       sync.RWMutex
	clients  map[uint64]map[*client]struct{}
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[uint64]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

// Push sends an event to every open connection of the user. Delivery is
// best-effort: dead connections are dropped, errors are logged.
func (h *Hub) Push(userID uint64, event Event) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for cl := range h.clients[userID] {
		targets = append(targets, cl)
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		if err := cl.writeJSON(event); err != nil {
			log.Printf("websocket push to user %d failed: %v", userID, err)
			h.remove(userID, cl)
			cl.conn.Close()
		}
	}
}

// HandleConnection upgrades the request and keeps the connection registered
// until the client goes away. Incoming frames are discarded; the socket is a
// one-way notification channel with ping/pong keepalive.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, userID uint64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	cl := &client{conn: conn}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return cl.writeControl(websocket.PongMessage, []byte(appData))
	})

	h.add(userID, cl)
	defer h.remove(userID, cl)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) add(userID uint64, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][cl] = struct{}{}
}

func (h *Hub) remove(userID uint64, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[userID], cl)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}
