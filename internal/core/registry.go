package core

import "sync"

// Registry maps authenticated user identity to the live connection.
// It holds a single slot per user: registering a new connection supersedes
// any prior one, and the hub closes the superseded connection explicitly.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]*Client
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]*Client)}
}

// Register binds userID to client and returns the superseded connection, if
// any. The caller owns closing the superseded client.
func (r *Registry) Register(userID int64, client *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.conns[userID]
	if old == client {
		return nil
	}
	r.conns[userID] = client
	return old
}

// Unregister removes the entry for userID, but only while client still holds
// the slot. This keeps a superseded connection's teardown from evicting its
// replacement. Reports whether the entry was removed.
func (r *Registry) Unregister(userID int64, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[userID] != client {
		return false
	}
	delete(r.conns, userID)
	return true
}

// Resolve returns the live connection for userID, if one is registered.
func (r *Registry) Resolve(userID int64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.conns[userID]
	return client, ok
}

// IsLive reports whether userID currently has a registered connection.
func (r *Registry) IsLive(userID int64) bool {
	_, ok := r.Resolve(userID)
	return ok
}
