/**
 * @description
 * In-memory registry of open checkout sessions. Each session belongs to a
 * single donor view and dies with the process, matching the lifecycle of
 * the view that owns it: created at intent submission, destroyed when the
 * donor navigates away or completes checkout.
 */
package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/MagicForestApp/donate-hub/internal/app"
)

// SessionRegistry tracks live checkout sessions by id.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*app.Checkout
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*app.Checkout)}
}

// Add registers a checkout session and returns its id.
func (r *SessionRegistry) Add(c *app.Checkout) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = c
	return id
}

// Get looks up a session by id.
func (r *SessionRegistry) Get(id string) (*app.Checkout, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[id]
	return c, ok
}

// Remove drops a session. Safe to call for unknown ids.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
