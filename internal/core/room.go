package core

import "time"

// Room groups the connections sharing one room code.
type Room struct {
	Code        string
	CreatorAddr string
	CreatedAt   time.Time
	clients     map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(code, creatorAddr string, createdAt time.Time) *Room {
	return &Room{
		Code:        code,
		CreatorAddr: creatorAddr,
		CreatedAt:   createdAt,
		clients:     make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Has reports whether c is a member.
func (r *Room) Has(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

// Broadcast sends an event to every client in the room except sender and
// returns how many clients accepted it.
func (r *Room) Broadcast(event *Event, sender *Client) int {
	delivered := 0
	for client := range r.clients {
		if client == sender {
			continue
		}
		if client.deliver(event) {
			delivered++
		}
	}
	return delivered
}

// Len returns the member count.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
