package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"clientbook/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySeenStoreMarkOnce(t *testing.T) {
	s := NewMemorySeenStore()
	ctx := context.Background()

	first, err := s.MarkOnce(ctx, "tag-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.MarkOnce(ctx, "tag-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	other, err := s.MarkOnce(ctx, "tag-2", time.Hour)
	require.NoError(t, err)
	assert.True(t, other)
}

func TestMemorySeenStoreExpiry(t *testing.T) {
	s := NewMemorySeenStore()
	now := time.Date(2026, 3, 6, 20, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := s.MarkOnce(ctx, "tag", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	now = now.Add(61 * time.Second)
	again, err := s.MarkOnce(ctx, "tag", time.Minute)
	require.NoError(t, err)
	assert.True(t, again, "expired marker is seen again")
}

func TestRedisSeenStoreMarkOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisSeenStore(client)
	ctx := context.Background()

	first, err := s.MarkOnce(ctx, "tag-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.MarkOnce(ctx, "tag-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	mr.FastForward(2 * time.Hour)
	third, err := s.MarkOnce(ctx, "tag-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, third)
}

type erroringStore struct{ calls int }

func (s *erroringStore) MarkOnce(context.Context, string, time.Duration) (bool, error) {
	s.calls++
	return false, errors.New("down")
}

func TestFailoverSeenStoreFallsBack(t *testing.T) {
	logger := zerolog.Nop()
	primary := &erroringStore{}
	fallback := NewMemorySeenStore()
	s := NewFailoverSeenStore(primary, fallback, &logger)
	ctx := context.Background()

	first, err := s.MarkOnce(ctx, "tag", time.Hour)
	require.NoError(t, err)
	assert.True(t, first, "served by the fallback")
	assert.Equal(t, 1, primary.calls)

	// While down, the primary is not re-tried within the probe window.
	second, err := s.MarkOnce(ctx, "tag", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)
	assert.Equal(t, 1, primary.calls)
}

func TestFailoverSeenStoreUsesPrimaryWhenHealthy(t *testing.T) {
	logger := zerolog.Nop()
	mr := miniredis.RunT(t)
	primary := NewRedisSeenStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	fallback := NewMemorySeenStore()

	var s domain.SeenStore = NewFailoverSeenStore(primary, fallback, &logger)
	ctx := context.Background()

	first, err := s.MarkOnce(ctx, "tag", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.MarkOnce(ctx, "tag", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)
}
