package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// envelope is the wire frame for every outbound event.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// client owns one websocket connection. All writes go through the send
// channel so only the writer goroutine ever touches the connection.
type client struct {
	id   string
	conn *websocket.Conn
	send chan envelope
	once sync.Once
}

// shutdown closes the send channel; the writer drains what is queued and then
// closes the connection. Must only be called after the client is removed from
// the hub, otherwise a concurrent emit could hit a closed channel.
func (c *client) shutdown() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks live connections and their room membership, and implements the
// duel service's notifier boundary. Emissions never block: a client whose
// buffer is full gets its connection closed instead of stalling the room.
type Hub struct {
	log zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// add registers a connection and starts its writer goroutine.
func (h *Hub) add(connID string, conn *websocket.Conn) *client {
	c := &client{id: connID, conn: conn, send: make(chan envelope, 32)}

	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()

	go func() {
		for msg := range c.send {
			if err := c.conn.WriteJSON(msg); err != nil {
				h.log.Debug().Str("conn", c.id).Err(err).Msg("ws write failed")
				break
			}
		}
		_ = c.conn.Close()
	}()
	return c
}

// remove drops the connection from the hub and every room. After remove
// returns no further emissions can reach the client.
func (h *Hub) remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) JoinRoom(roomID string, connIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	for _, connID := range connIDs {
		members[connID] = struct{}{}
	}
}

func (h *Hub) LeaveRoom(roomID string, connIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for _, connID := range connIDs {
		delete(members, connID)
	}
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) EmitRoom(roomID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[roomID] {
		h.emitLocked(connID, event, payload)
	}
}

func (h *Hub) EmitConn(connID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.emitLocked(connID, event, payload)
}

func (h *Hub) RoomMembers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]string, 0, len(h.rooms[roomID]))
	for connID := range h.rooms[roomID] {
		members = append(members, connID)
	}
	return members
}

func (h *Hub) IsConnected(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[connID]
	return ok
}

// emitLocked enqueues under the hub lock, which excludes a concurrent remove
// and keeps the send channel safe.
func (h *Hub) emitLocked(connID, event string, payload any) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- envelope{Type: event, Payload: payload}:
	default:
		// Slow consumer: dropping duel events would desync the client, so cut
		// the connection and let disconnect cleanup settle the duel.
		h.log.Warn().Str("conn", connID).Str("event", event).Msg("send buffer full, closing connection")
		_ = c.conn.Close()
	}
}
