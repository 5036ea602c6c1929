package notify

import (
	"context"
	"time"

	"clientbook/internal/domain"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the structured log. Always present, so
// every alert leaves a trace even with no other sink configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Fire(_ context.Context, notification domain.Notification) error {
	event := n.logger.Info()
	if notification.RequireInteraction {
		event = n.logger.Warn()
	}
	event.
		Str("tag", notification.Tag).
		Str("title", notification.Title).
		Str("body", notification.Body).
		Msg("notification")
	return nil
}

// DedupNotifier suppresses repeated notifications with the same tag within
// the window, using the seen store. Tags dedup at the sink, not the engine,
// so restarts covered by redis stay quiet too.
type DedupNotifier struct {
	next   domain.Notifier
	seen   domain.SeenStore
	window time.Duration
	logger zerolog.Logger
}

func NewDedupNotifier(next domain.Notifier, seen domain.SeenStore, window time.Duration, logger *zerolog.Logger) *DedupNotifier {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &DedupNotifier{
		next:   next,
		seen:   seen,
		window: window,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

func (n *DedupNotifier) Fire(ctx context.Context, notification domain.Notification) error {
	if notification.Tag != "" {
		fresh, err := n.seen.MarkOnce(ctx, notification.Tag, n.window)
		if err != nil {
			// Dedup failure must not swallow the alert.
			n.logger.Error().Err(err).Str("tag", notification.Tag).Msg("dedup check failed")
		} else if !fresh {
			n.logger.Debug().Str("tag", notification.Tag).Msg("duplicate notification suppressed")
			return nil
		}
	}
	return n.next.Fire(ctx, notification)
}

// MultiNotifier fans a notification out to every sink. The first error is
// returned after all sinks were tried.
type MultiNotifier struct {
	sinks []domain.Notifier
}

func NewMultiNotifier(sinks ...domain.Notifier) *MultiNotifier {
	return &MultiNotifier{sinks: sinks}
}

func (n *MultiNotifier) Fire(ctx context.Context, notification domain.Notification) error {
	var firstErr error
	for _, sink := range n.sinks {
		if err := sink.Fire(ctx, notification); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
