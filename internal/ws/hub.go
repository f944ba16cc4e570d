// Package ws fans room events (draws, status changes) out to every client
// watching that room over a websocket. Clients that fall behind or error
// are dropped; the polling endpoints remain the fallback read path.
package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event is one broadcast message, JSON-encoded on the wire.
type Event struct {
	Type string `json:"type"` // Event type: draw, status, player_joined
	Data any    `json:"data"` // Event payload
}

// Hub tracks the websocket connections subscribed to each room code.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

// NewHub creates a hub. An empty origin allows any origin, which is what the
// party setup needs (phones on the local network hitting a LAN address).
func NewHub(origin string) *Hub {
	return &Hub{
		rooms: make(map[string]map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return origin == "" || r.Header.Get("Origin") == origin
			},
		},
	}
}

// Serve upgrades the request and keeps the connection registered until the
// client disconnects. The read loop only exists to detect the close.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, roomCode string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Error("websocket upgrade failed")
		return
	}
	h.add(roomCode, conn)
	defer func() {
		h.remove(roomCode, conn)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends an event to every connection watching the room.
func (h *Hub) Broadcast(roomCode string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[roomCode] {
		if err := conn.WriteJSON(event); err != nil {
			// Drop broken connections instead of stalling the room
			delete(h.rooms[roomCode], conn)
			conn.Close()
		}
	}
}

func (h *Hub) add(roomCode string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomCode][conn] = true
}

func (h *Hub) remove(roomCode string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomCode], conn)
	if len(h.rooms[roomCode]) == 0 {
		delete(h.rooms, roomCode)
	}
}
