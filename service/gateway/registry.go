package gateway

import (
	"sort"
	"sync"
)

// Registry maps a user to their single live connection.
//
// A user has at most one entry; registering again replaces the previous handle.
// The reverse index lets a disconnect remove its entry without knowing the user,
// and a disconnect of a replaced handle leaves the newer entry alone.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Emitter // user -> handle
	byConn map[string]string  // handle id -> user
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]Emitter),
		byConn: make(map[string]string),
	}
}

// Register binds userID to h, replacing any previous binding for that user.
// It returns the replaced handle, if any.
func (r *Registry) Register(userID string, h Emitter) (replaced Emitter) {
	if userID == "" || h == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok && prev.ID() != h.ID() {
		delete(r.byConn, prev.ID())
		replaced = prev
	}
	// a handle belongs to one user; drop a stale binding under another id
	if u, ok := r.byConn[h.ID()]; ok && u != userID {
		if cur, ok := r.byUser[u]; ok && cur.ID() == h.ID() {
			delete(r.byUser, u)
		}
	}
	r.byUser[userID] = h
	r.byConn[h.ID()] = userID
	return replaced
}

// Unregister removes whichever user entry currently points at connID.
// An unknown or already replaced handle is a no-op and reports false.
func (r *Registry) Unregister(connID string) (userID string, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	if cur, ok := r.byUser[userID]; ok && cur.ID() == connID {
		delete(r.byUser, userID)
		return userID, true
	}
	return "", false
}

// Resolve returns the live handle for userID.
func (r *Registry) Resolve(userID string) (Emitter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byUser[userID]
	return h, ok
}

// ListConnectedUsers returns the connected user ids, sorted.
func (r *Registry) ListConnectedUsers() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		out = append(out, u)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *Registry) IsConnected(userID string) bool {
	_, ok := r.Resolve(userID)
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
