package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds the currently connected identified users, keyed by
// identity. Presence in the registry means the user is online; there is
// no soft-deactivation state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Join stores a session for id, minting a fresh identity when id is
// empty. A rejoin with an existing identity replaces the stored session
// rather than duplicating it. Returns a copy of the stored session.
func (r *Registry) Join(id, name string) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	s := &Session{
		ID:       id,
		Name:     name,
		Active:   true,
		JoinedAt: time.Now(),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	return s.Clone()
}

// Leave removes and returns the session for id. Safe to call for an
// identity that is not present; the second return reports whether a
// session was actually removed.
func (r *Registry) Leave(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	return s, true
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// List returns a snapshot of all sessions in arbitrary order.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s.Clone())
	}
	return result
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}
