package game

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Client is one websocket subscriber, pinned to a table.
type Client struct {
	conn   *websocket.Conn
	userID string
	table  string
	mu     sync.Mutex
}

// Hub fans snapshots out to subscribers per table. Sends are fire-and-forget
// per connection: a slow or dead client never delays the scheduler.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan tableMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type tableMessage struct {
	table   string
	payload interface{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan tableMessage, 100),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s table=%s (Total: %d)", client.userID, client.table, len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.conn.Close()
				log.Printf("[WS] Client disconnected: %s (Total: %d)", client.userID, len(h.clients))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.payload)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				if client.table != msg.table {
					continue
				}
				go client.send(data) // non-blocking per connection
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a message for every subscriber of a table, dropping it if
// the queue is full rather than blocking the caller.
func (h *Hub) Broadcast(table string, payload interface{}) {
	select {
	case h.broadcast <- tableMessage{table: table, payload: payload}:
	default:
		log.Println("[WS] Broadcast channel full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) send(message interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	var err error

	switch v := message.(type) {
	case []byte:
		data = v
	default:
		data, err = json.Marshal(v)
		if err != nil {
			log.Printf("[WS] Send marshal error: %v", err)
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[WS] Write error for user %s: %v", c.userID, err)
	}
}

// SendSnapshot pushes the current round snapshot to one client. This is the
// late-join entry point: a freshly connected client derives its whole view,
// including any in-progress spin, from this message alone.
func (c *Client) SendSnapshot(snap Snapshot) {
	c.send(map[string]interface{}{
		"type": "snapshot",
		"data": snap,
	})
}

func (h *Hub) RegisterClient(conn *websocket.Conn, userID, table string) *Client {
	client := &Client{
		conn:   conn,
		userID: userID,
		table:  table,
	}
	h.register <- client
	return client
}

func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mu.RLock()
	for client := range h.clients {
		if client.conn == conn {
			h.mu.RUnlock()
			h.unregister <- client
			return
		}
	}
	h.mu.RUnlock()
}
