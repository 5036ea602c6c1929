package repository

import (
	"context"
	"sync"
	"time"
)

// MemorySeenStore is the in-process fallback for notification tag dedup.
// Expired entries are pruned lazily on access.
type MemorySeenStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// MarkOnce returns true the first time a key is seen within its ttl window.
func (s *MemorySeenStore) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.seen[key]; ok && now.Before(expiry) {
		return false, nil
	}

	for k, expiry := range s.seen {
		if !now.Before(expiry) {
			delete(s.seen, k)
		}
	}

	s.seen[key] = now.Add(ttl)
	return true, nil
}
