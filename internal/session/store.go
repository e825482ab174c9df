// Package session keeps per-browser wizard state in memory and evicts idle
// workspaces.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"kpijoin/domain/core"
)

// Store holds workspaces keyed by session ID
type Store struct {
	mu         sync.RWMutex
	workspaces map[core.SessionID]*Workspace
	ttl        time.Duration
	now        func() time.Time
}

// NewStore creates a store evicting workspaces idle for longer than ttl.
// A non-positive ttl disables eviction.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		workspaces: make(map[core.SessionID]*Workspace),
		ttl:        ttl,
		now:        time.Now,
	}
}

// GetOrCreate returns the workspace for id, creating it when absent. An empty
// id gets a fresh identifier. The workspace is marked as seen.
func (s *Store) GetOrCreate(id core.SessionID) (*Workspace, bool) {
	now := s.now()

	if id != "" {
		s.mu.RLock()
		w, ok := s.workspaces[id]
		s.mu.RUnlock()
		if ok {
			w.touch(now)
			return w, false
		}
	} else {
		id = core.NewSessionID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workspaces[id]; ok {
		w.touch(now)
		return w, false
	}
	w := newWorkspace(id, now)
	s.workspaces[id] = w
	return w, true
}

// Touch marks an existing workspace as seen and returns it. It never creates
// one, so an ID evicted by the janitor stays gone. The read lock is held while
// touching, which keeps Sweep from evicting the workspace in between.
func (s *Store) Touch(id core.SessionID) (*Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workspaces[id]
	if !ok {
		return nil, false
	}
	w.touch(s.now())
	return w, true
}

// Get returns an existing workspace without creating one
func (s *Store) Get(id core.SessionID) (*Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workspaces[id]
	return w, ok
}

// Delete drops a workspace
func (s *Store) Delete(id core.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workspaces, id)
}

// Len returns the number of live workspaces
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workspaces)
}

// Sweep evicts workspaces idle for longer than the TTL and returns how many went
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, w := range s.workspaces {
		if w.idleSince(now) > s.ttl {
			delete(s.workspaces, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is cancelled
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		log.Printf("[SessionStore] janitor disabled (interval=%v, ttl=%v)", interval, s.ttl)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[SessionStore] janitor started (interval=%v, ttl=%v)", interval, s.ttl)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SessionStore] janitor stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				log.Printf("[SessionStore] evicted %d idle workspaces, %d remain", n, s.Len())
			}
		}
	}
}
