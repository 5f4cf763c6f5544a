package realtime

import (
	"encoding/json"
	"sync"
)

// wsConn is the slice of a websocket connection the hub needs. Satisfied by
// *websocket.Conn from gorilla.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const textMessage = 1 // websocket.TextMessage

// Event is the envelope every socket frame carries.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type connection struct {
	id     string
	userID string
	mu     sync.Mutex // serializes writes on the socket
	conn   wsConn
}

func (c *connection) send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Best effort: a dead socket is reaped by its read loop.
	_ = c.conn.WriteMessage(textMessage, frame)
}

// Hub is the process-local presence registry: user id to live connections and
// conversation-id rooms for chat. It is never authoritative for business
// state; a disconnect silently drops the mapping and events to absent users
// are dropped.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*connection
	users map[string]map[string]*connection
	rooms map[string]map[string]*connection
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*connection),
		users: make(map[string]map[string]*connection),
		rooms: make(map[string]map[string]*connection),
	}
}

// Register associates a live connection with a user. The same user may hold
// several connections (multiple devices).
func (h *Hub) Register(connID, userID string, conn wsConn) {
	c := &connection{id: connID, userID: userID, conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = c
	if h.users[userID] == nil {
		h.users[userID] = make(map[string]*connection)
	}
	h.users[userID][connID] = c
}

// Deregister drops a connection from the registry and every room it joined.
func (h *Hub) Deregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	if set := h.users[c.userID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.users, c.userID)
		}
	}
	for room, set := range h.rooms {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
}

// JoinRoom adds a registered connection to a conversation room.
func (h *Hub) JoinRoom(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*connection)
	}
	h.rooms[roomID][connID] = c
}

// Notify delivers an event to every live connection of userID. Fire and
// forget: no connection, no delivery.
func (h *Hub) Notify(userID, event string, payload any) {
	h.mu.RLock()
	conns := make([]*connection, 0, len(h.users[userID]))
	for _, c := range h.users[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.send(event, payload)
	}
}

// BroadcastRoom delivers an event to every connection in a conversation room.
func (h *Hub) BroadcastRoom(roomID, event string, payload any) {
	h.mu.RLock()
	conns := make([]*connection, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.send(event, payload)
	}
}

// Online reports how many live connections userID currently holds.
func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
