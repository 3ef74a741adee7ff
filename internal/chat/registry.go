package chat

import (
	"sync"

	"github.com/adzikra/pigeon-chat/internal/domain"
)

// PresenceListener is notified after every successful bind or unbind so
// the derived online view can be recomputed and re-broadcast.
type PresenceListener interface {
	PresenceChanged()
}

// IdentityRegistry is the source of truth for who is online. It tracks
// every live connection plus the identity (if any) each one is bound to.
type IdentityRegistry struct {
	mu       sync.RWMutex
	conns    map[Conn]struct{} // all live connections, bound or not
	bound    map[Conn]domain.Identity
	byUser   map[string]Conn
	order    []string // user ids in login order
	listener PresenceListener
}

// NewIdentityRegistry creates an empty registry.
func NewIdentityRegistry() *IdentityRegistry {
	return &IdentityRegistry{
		conns:  make(map[Conn]struct{}),
		bound:  make(map[Conn]domain.Identity),
		byUser: make(map[string]Conn),
	}
}

// SetListener sets the presence listener. Must be called before the
// registry is shared between goroutines.
func (r *IdentityRegistry) SetListener(l PresenceListener) {
	r.listener = l
}

// AddConn tracks a live connection before it has logged in.
func (r *IdentityRegistry) AddConn(c Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// RemoveConn forgets a connection entirely. Callers unbind first; this
// only drops the transport-level tracking.
func (r *IdentityRegistry) RemoveConn(c Conn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

// Bind associates c with id, replacing any identity c previously held.
// If id.UserID was bound to a different connection, that binding is
// superseded (last login wins) and the old connection is returned so the
// caller can notify it. Bind triggers the presence listener.
func (r *IdentityRegistry) Bind(c Conn, id domain.Identity) (evicted Conn) {
	r.mu.Lock()

	// A connection re-logging-in under a new user id frees its old one.
	if prev, ok := r.bound[c]; ok && prev.UserID != id.UserID {
		delete(r.byUser, prev.UserID)
		r.dropFromOrder(prev.UserID)
	}

	if old, ok := r.byUser[id.UserID]; ok && old != c {
		delete(r.bound, old)
		evicted = old
	} else if !ok {
		r.order = append(r.order, id.UserID)
	}

	r.bound[c] = id
	r.byUser[id.UserID] = c
	listener := r.listener
	r.mu.Unlock()

	if listener != nil {
		listener.PresenceChanged()
	}
	return evicted
}

// Unbind removes and returns the identity bound to c. Unbinding a
// connection that was never bound is a no-op.
func (r *IdentityRegistry) Unbind(c Conn) (domain.Identity, bool) {
	r.mu.Lock()
	id, ok := r.bound[c]
	if ok {
		delete(r.bound, c)
		// Another connection may have claimed the user id since.
		if r.byUser[id.UserID] == c {
			delete(r.byUser, id.UserID)
			r.dropFromOrder(id.UserID)
		}
	}
	listener := r.listener
	r.mu.Unlock()

	if ok && listener != nil {
		listener.PresenceChanged()
	}
	return id, ok
}

// IdentityOf returns the identity bound to c, if any.
func (r *IdentityRegistry) IdentityOf(c Conn) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bound[c]
	return id, ok
}

// ConnOf returns the connection currently bound to userID, if any.
func (r *IdentityRegistry) ConnOf(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// ListOnline returns every bound identity in login order.
func (r *IdentityRegistry) ListOnline() []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.Identity, 0, len(r.order))
	for _, userID := range r.order {
		if c, ok := r.byUser[userID]; ok {
			list = append(list, r.bound[c])
		}
	}
	return list
}

// AllConns returns a snapshot of every live connection, bound or not.
func (r *IdentityRegistry) AllConns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// dropFromOrder removes userID from the login-order slice.
// Caller must hold the write lock.
func (r *IdentityRegistry) dropFromOrder(userID string) {
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
