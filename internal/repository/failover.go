package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"clientbook/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverSeenStore serves from the primary store until it errors, then from
// the fallback, probing the primary again after a minute. Dedup degrades to
// per-process when redis is away, which at worst repeats a notification.
type FailoverSeenStore struct {
	primary  domain.SeenStore
	fallback domain.SeenStore
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverSeenStore(primary, fallback domain.SeenStore, logger *zerolog.Logger) *FailoverSeenStore {
	return &FailoverSeenStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *FailoverSeenStore) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !s.isDown.Load() {
		ok, err := s.primary.MarkOnce(ctx, key, ttl)
		if err == nil {
			return ok, nil
		}
		s.logger.Error().Err(err).Msg("primary seen store failed, falling back to memory")
		s.markDown()
	}

	if s.shouldProbe() {
		ok, err := s.primary.MarkOnce(ctx, key, ttl)
		if err == nil {
			s.isDown.Store(false)
			return ok, nil
		}
		s.markDown()
	}

	return s.fallback.MarkOnce(ctx, key, ttl)
}

func (s *FailoverSeenStore) markDown() {
	s.isDown.Store(true)
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}

func (s *FailoverSeenStore) shouldProbe() bool {
	if !s.isDown.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastCheck) > time.Minute
}
