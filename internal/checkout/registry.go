package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/catalog"
)

// Registry holds the open checkout sessions of every owner.
type Registry struct {
	deps  Deps
	newID func() string

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps.withDefaults(),
		newID:    uuid.NewString,
		sessions: map[string]*Session{},
	}
}

func (r *Registry) Open(ownerID string) (*Session, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	s := NewSession(r.newID(), ownerID, r.deps)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns the session only to the owner that opened it.
func (r *Registry) Get(ownerID, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.OwnerID() != ownerID {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

func (r *Registry) Close(ownerID, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.OwnerID() != ownerID {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	s.Close()
	return nil
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

// Sweep closes every session idle for at least ttl and returns how many it
// closed.
func (r *Registry) Sweep(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.expired(now, ttl) {
			delete(r.sessions, id)
			stale = append(stale, s)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done. A ttl of zero disables it.
func (r *Registry) Run(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(r.deps.Now(), ttl); n > 0 {
				r.deps.Logger.Info("closed idle checkout sessions", zap.Int("count", n))
			}
		}
	}
}

func (r *Registry) ownedBy(ownerID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Session
	for _, s := range r.sessions {
		if s.OwnerID() == ownerID {
			out = append(out, s)
		}
	}
	return out
}

// ProductUpdated implements catalog.Observer.
func (r *Registry) ProductUpdated(ownerID string, p catalog.Product) {
	for _, s := range r.ownedBy(ownerID) {
		s.RefreshProduct(p)
	}
}

// ProductDeleted implements catalog.Observer.
func (r *Registry) ProductDeleted(ownerID, productID string) {
	for _, s := range r.ownedBy(ownerID) {
		s.DropProduct(productID)
	}
}

var _ catalog.Observer = (*Registry)(nil)
