package server

import (
	"sync"

	"github.com/hupe1980/interviewmesh/interview"
)

// Registry tracks the live connection per session. At most one connection
// may drive a session at a time; a second connect for the same id replaces
// the previous entry after its watchdog has been cancelled.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	coordinator *interview.Coordinator
	cancel      func()
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*client)}
}

// Insert registers the client for the session, cancelling any previous one.
func (r *Registry) Insert(sessionID string, c *client) {
	r.mu.Lock()
	prev := r.clients[sessionID]
	r.clients[sessionID] = c
	r.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}
}

// Remove unregisters the client if it is still the session's current one
// and cancels its watchdog.
func (r *Registry) Remove(sessionID string, c *client) {
	r.mu.Lock()
	if r.clients[sessionID] == c {
		delete(r.clients, sessionID)
	}
	r.mu.Unlock()
	c.cancel()
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
