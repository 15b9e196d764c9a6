package relay

import (
	"sort"
	"sync"
)

// Registry maps a user id to their single live connection.
type Registry struct {
	mu      sync.RWMutex
	clients map[int64]*Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[int64]*Client)}
}

// Bind makes c the live connection of its user and returns the connection
// it displaced, if any.
func (r *Registry) Bind(c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.clients[c.userID]
	r.clients[c.userID] = c
	if previous == c {
		return nil
	}
	return previous
}

// Unbind removes c only if it is still the user's live connection, so a
// late close of a replaced socket cannot evict its successor.
func (r *Registry) Unbind(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.clients[c.userID]; ok && current == c {
		delete(r.clients, c.userID)
		return true
	}
	return false
}

// Lookup returns the live connection of userID.
func (r *Registry) Lookup(userID int64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[userID]
	return c, ok
}

// Clients returns a snapshot of every bound connection.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Online returns the sorted ids of connected users.
func (r *Registry) Online() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
