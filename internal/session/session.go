// Package session tracks which users have search mode switched on. A user
// enters search mode, sends their next message as a query, and the flag is
// consumed. Stale flags expire after a TTL so abandoned sessions do not
// pile up.
package session

import (
	"context"
	"sync"
	"time"
)

const DefaultTTL = 10 * time.Minute

type Store struct {
	mu       sync.RWMutex
	awaiting map[int64]time.Time
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		awaiting: make(map[int64]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetAwaiting marks the user as waiting to send a search query. Calling it
// again refreshes the expiry.
func (s *Store) SetAwaiting(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaiting[userID] = s.now().Add(s.ttl)
}

// Awaiting reports whether the user is in search mode.
func (s *Store) Awaiting(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deadline, ok := s.awaiting[userID]
	return ok && s.now().Before(deadline)
}

// ConsumeAwaiting clears the flag and reports whether it was set. The
// caller treats the user's message as a search query only when it was.
func (s *Store) ConsumeAwaiting(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.awaiting[userID]
	if !ok {
		return false
	}
	delete(s.awaiting, userID)
	return s.now().Before(deadline)
}

// Clear removes the flag without consuming it.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.awaiting, userID)
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for userID, deadline := range s.awaiting {
		if !now.Before(deadline) {
			delete(s.awaiting, userID)
		}
	}
}

// Sweep removes expired flags periodically until the context is cancelled.
func (s *Store) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}
