package api

import (
	"sync"

	"clientbook/internal/config"

	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per caller key. Buckets are never
// evicted; the caller population (api keys plus a handful of hosts) stays
// small.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

func newRateLimiter(cfg *config.APIConfig) *rateLimiter {
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}
	return &rateLimiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(cfg.RateLimit.RPS),
		burst:   burst,
	}
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.buckets[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = lim
	}
	return lim
}
