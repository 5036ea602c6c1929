package worker

import (
	"context"
	"time"

	"clientbook/internal/domain"
	"clientbook/internal/metrics"

	"github.com/rs/zerolog"
)

// Dispatcher decouples notification delivery from the poll loop: Fire only
// enqueues, a single consumer goroutine delivers with retries. The engine
// therefore never blocks on a slow sink; when the buffer is full the
// notification is dropped and counted.
type Dispatcher struct {
	sink   domain.Notifier
	retry  RetryPolicy
	queue  chan domain.Notification
	logger zerolog.Logger
}

func NewDispatcher(sink domain.Notifier, queueSize int, retry RetryPolicy, logger *zerolog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 128
	}
	if retry.MaxRetries <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Dispatcher{
		sink:   sink,
		retry:  retry,
		queue:  make(chan domain.Notification, queueSize),
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Fire enqueues the notification without blocking. Implements
// domain.Notifier so producers cannot tell the dispatcher from a sink.
func (d *Dispatcher) Fire(_ context.Context, n domain.Notification) error {
	select {
	case d.queue <- n:
	default:
		metrics.IncNotification("dropped")
		d.logger.Warn().Str("tag", n.Tag).Msg("notification queue full, dropped")
	}
	return nil
}

// Start consumes the queue until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info().Msg("dispatcher started")
	defer d.logger.Info().Msg("dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) {
	for attempt := 1; ; attempt++ {
		err := d.sink.Fire(ctx, n)
		if err == nil {
			metrics.IncNotification("delivered")
			return
		}
		if attempt >= d.retry.MaxRetries {
			metrics.IncNotification("failed")
			d.logger.Error().Err(err).
				Str("tag", n.Tag).
				Int("attempts", attempt).
				Msg("notification delivery gave up")
			return
		}

		delay := d.retry.NextDelay(attempt)
		d.logger.Warn().Err(err).
			Str("tag", n.Tag).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("notification delivery failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
