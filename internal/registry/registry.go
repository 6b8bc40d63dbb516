package registry

import (
	"log/slog"
	"sync"
)

// Conn is a live push channel as seen by the registry and the broadcast
// engine. Send reports false when the connection is dead or too slow, which
// callers treat as a signal to detach it.
type Conn interface {
	Send(frame []byte) bool
	Close() error
}

// Registry maps user ids to their live connections.
type Registry struct {
	logger *slog.Logger

	mu     sync.RWMutex
	byUser map[string]map[Conn]struct{}
	owner  map[Conn]string
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		byUser: make(map[string]map[Conn]struct{}),
		owner:  make(map[Conn]string),
	}
}

// Attach registers a connection under a user id. A user may hold many
// simultaneous connections. Re-attaching an already attached connection
// moves it to the new user.
func (r *Registry) Attach(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owner[conn]; ok {
		r.detachLocked(prev, conn)
	}

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[Conn]struct{})
		r.byUser[userID] = set
	}
	set[conn] = struct{}{}
	r.owner[conn] = userID
}

// Detach removes a connection from whatever user it was registered under.
// A no-op on connections never attached or already detached. Reports
// whether the connection was attached.
func (r *Registry) Detach(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owner[conn]
	if !ok {
		return false
	}
	r.detachLocked(userID, conn)
	return true
}

// detachLocked removes conn from a user's set. Must hold the lock.
func (r *Registry) detachLocked(userID string, conn Conn) {
	if set, ok := r.byUser[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
	delete(r.owner, conn)
}

// ConnectionsFor returns a point-in-time snapshot of a user's connections.
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// Users returns a snapshot of user ids with at least one live connection.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		out = append(out, userID)
	}
	return out
}

// Count returns the total number of attached connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owner)
}
