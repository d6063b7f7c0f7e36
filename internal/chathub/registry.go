package chathub

import (
	"sync"
)

// Registry maps each user to their single current connection.
// The latest Register wins; Unregister only removes the caller's own entry.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register makes client the user's current connection and returns the
// connection it replaced, if any.
func (r *Registry) Register(client Client) Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.clients[client.GetUserID()]
	r.clients[client.GetUserID()] = client
	if prev == client {
		return nil
	}
	return prev
}

// Unregister removes client only if it is still the user's current
// connection. It reports whether an entry was removed.
func (r *Registry) Unregister(client Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.clients[client.GetUserID()]
	if !ok || current != client {
		return false
	}
	delete(r.clients, client.GetUserID())
	return true
}

func (r *Registry) Lookup(userID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
