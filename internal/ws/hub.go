package ws

import (
	"encoding/json"
	"sync"
)

// Hub tracks channel rooms and which connections belong to which user.
// A user may hold several connections at once; routing a frame to a user
// delivers it to every one of them.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[int]map[*Client]bool
	users   map[int]map[*Client]bool
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[int]map[*Client]bool),
		users:   make(map[int]map[*Client]bool),
		clients: make(map[*Client]bool),
	}
}

// Register tracks a live connection from the moment it is upgraded,
// before the client has identified itself.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// BindUser indexes the client under its identified user id.
func (h *Hub) BindUser(userID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.users[userID]
	if conns == nil {
		conns = make(map[*Client]bool)
		h.users[userID] = conns
	}
	conns[c] = true
}

func (h *Hub) UnbindUser(userID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.users[userID]
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.users, userID)
	}
}

func (h *Hub) JoinRoom(channelID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[channelID]
	if room == nil {
		room = make(map[*Client]bool)
		h.rooms[channelID] = room
	}
	room[c] = true
}

func (h *Hub) LeaveRoom(channelID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[channelID]
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, channelID)
	}
}

// RemoveFromAllRooms drops the client from every room, for disconnect.
func (h *Hub) RemoveFromAllRooms(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channelID, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, channelID)
		}
	}
}

// RoomSize reports the current number of connections in a room.
func (h *Hub) RoomSize(channelID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channelID])
}

// BroadcastToRoom sends the envelope to every connection in the room,
// including the origin.
func (h *Hub) BroadcastToRoom(channelID int, event string, data any) error {
	frame, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[channelID] {
		_ = c.TrySend(frame)
	}
	return nil
}

// RelayToRoom sends the envelope to everyone in the room except origin.
// Typing indicators use this so a client never sees its own typing.
func (h *Hub) RelayToRoom(channelID int, origin *Client, event string, data any) error {
	frame, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[channelID] {
		if c == origin {
			continue
		}
		_ = c.TrySend(frame)
	}
	return nil
}

// SendToUser routes the envelope to every connection of the target user.
// Unknown users are a silent no-op.
func (h *Hub) SendToUser(userID int, event string, data any) error {
	frame, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		_ = c.TrySend(frame)
	}
	return nil
}

// BroadcastAll sends the envelope to every live connection, identified
// or not. The online roster goes out this way so a freshly upgraded
// socket sees it before sending user:join.
func (h *Hub) BroadcastAll(event string, data any) error {
	frame, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.TrySend(frame)
	}
	return nil
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
