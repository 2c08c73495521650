package ws

import "sync"

// Registry is the source of truth for who is online. It maps live connection
// ids to user ids and is owned by the gateway: created at server start,
// cleared entry by entry on disconnect, never touched as ambient state.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]int)}
}

// Join records the connection→user association.
func (r *Registry) Join(connID string, userID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[connID] = userID
}

// Disconnect removes the association and reports the user it belonged to.
// Removing an unknown connection is a no-op.
func (r *Registry) Disconnect(connID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.entries[connID]
	if ok {
		delete(r.entries, connID)
	}
	return userID, ok
}

// UserFor returns the user bound to the connection, if any.
func (r *Registry) UserFor(connID string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.entries[connID]
	return userID, ok
}

// ListOnline returns one entry per live connection. A user with several open
// tabs appears once per tab; the broadcast deliberately keeps duplicates.
func (r *Registry) ListOnline() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	online := make([]int, 0, len(r.entries))
	for _, userID := range r.entries {
		online = append(online, userID)
	}
	return online
}

// Len reports the number of identified connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
