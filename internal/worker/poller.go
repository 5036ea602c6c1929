package worker

import (
	"context"
	"sync/atomic"
	"time"

	"clientbook/internal/metrics"

	"github.com/rs/zerolog"
)

// Pass is one evaluation step driven by the poller.
type Pass interface {
	Pass(ctx context.Context) error
}

// Poller runs the registered passes on a fixed interval and on demand via
// Wake. A single atomic flag collapses overlapping invocations: when a tick
// is still in flight, the new trigger is dropped rather than queued, so
// passes never run concurrently.
type Poller struct {
	interval time.Duration
	passes   []Pass
	logger   zerolog.Logger

	wake    chan struct{}
	running atomic.Bool
}

func NewPoller(interval time.Duration, logger *zerolog.Logger, passes ...Pass) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		interval: interval,
		passes:   passes,
		logger:   logger.With().Str("component", "poller").Logger(),
		wake:     make(chan struct{}, 1),
	}
}

// Wake requests an immediate tick, e.g. after the operator surface regains
// focus or an editor saved a booking. Non-blocking; a pending wake absorbs
// further ones.
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Start blocks until ctx is cancelled. The first tick runs immediately so a
// restart catches up on overdue transitions without waiting a full interval.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info().Dur("interval", p.interval).Msg("poller started")
	defer p.logger.Info().Msg("poller stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		case <-p.wake:
			p.Tick(ctx)
		}
	}
}

// Tick runs every pass once. Returns false when a tick was already in flight
// and this invocation was dropped.
func (p *Poller) Tick(ctx context.Context) bool {
	if !p.running.CompareAndSwap(false, true) {
		metrics.IncDroppedTick()
		p.logger.Debug().Msg("tick already in flight, dropped")
		return false
	}
	defer p.running.Store(false)

	metrics.IncTick()
	start := time.Now()
	for _, pass := range p.passes {
		if err := pass.Pass(ctx); err != nil {
			p.logger.Error().Err(err).Msg("pass failed")
		}
		if ctx.Err() != nil {
			return true
		}
	}
	p.logger.Debug().Dur("took", time.Since(start)).Msg("tick finished")
	return true
}
