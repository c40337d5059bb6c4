package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// LiveMessage is the frame pushed to dashboard subscribers whenever a
// reading for their order arrives.
type LiveMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	OrderRef  string      `json:"orderId"`
	Data      interface{} `json:"data"`
}

type client struct {
	conn     *websocket.Conn
	orderRef string
	send     chan []byte
	hub      *Hub
}

type roomMessage struct {
	orderRef string
	payload  []byte
}

// Hub fans readings out to websocket subscribers, one room per order.
type Hub struct {
	rooms      map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan *roomMessage

	log *slog.Logger
	mu  sync.RWMutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*client]bool),
		register:   make(chan *client, 10),
		unregister: make(chan *client, 10),
		broadcast:  make(chan *roomMessage, 100),
		log:        log,
	}
}

// Run owns the room maps. Must be started in its own goroutine before the
// first connection is accepted.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.orderRef] == nil {
				h.rooms[c.orderRef] = make(map[*client]bool)
			}
			h.rooms[c.orderRef][c] = true
			h.mu.Unlock()
			h.log.Debug("live subscriber connected", "orderId", c.orderRef)

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := h.rooms[msg.orderRef]
			h.mu.RUnlock()
			for c := range clients {
				select {
				case c.send <- msg.payload:
				default:
					// slow consumer, drop it rather than block the hub;
					// inline, not via the unregister channel, which only
					// this loop consumes
					h.drop(c)
				}
			}
		}
	}
}

// drop removes a client from its room and closes its send channel. Only
// called from the Run goroutine, which owns all room mutations.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[c.orderRef]
	if !ok {
		return
	}
	if _, exists := clients[c]; !exists {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.rooms, c.orderRef)
	}
}

// PublishReading pushes a stored reading to everyone watching its order.
// A room with no subscribers is a no-op.
func (h *Hub) PublishReading(row *Telemetry) {
	msg := LiveMessage{
		Type:      "telemetry_reading",
		Timestamp: time.Now().Format(time.RFC3339),
		OrderRef:  row.OrderRef,
		Data:      row,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("live frame encode failed", "error", err)
		return
	}
	h.broadcast <- &roomMessage{orderRef: row.OrderRef, payload: payload}
}

// SubscriberCounts reports connected clients per order room.
func (h *Hub) SubscriberCounts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	counts := make(map[string]int, len(h.rooms))
	for ref, clients := range h.rooms {
		counts[ref] = len(clients)
	}
	return counts
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleLive upgrades the request and subscribes it to one order's room.
func HandleLive(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderRef := c.Param("orderRef")
		if orderRef == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "orderRef is required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("websocket upgrade failed", "error", err)
			return
		}

		cl := &client{
			conn:     conn,
			orderRef: orderRef,
			send:     make(chan []byte, 256),
			hub:      hub,
		}
		hub.register <- cl

		go cl.writePump()
		go cl.readPump()

		hub.log.Debug("live connection opened",
			"orderId", orderRef,
			"client", fmt.Sprintf("%s_%d", c.ClientIP(), time.Now().UnixNano()))
	}
}
