package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clientbook/internal/database"
	"clientbook/internal/domain"
	"clientbook/internal/events"
	"clientbook/internal/ledger"
	"clientbook/internal/metrics"
	"clientbook/internal/models"
	"clientbook/internal/recurrence"

	"github.com/rs/zerolog"
)

// Engine drives the time-based booking transitions. One Pass evaluates every
// open booking exactly once against the injected clock; each booking's
// transition and its side effects commit in a single store transaction.
type Engine struct {
	db           *database.DB
	ledger       *ledger.Ledger
	spawner      *recurrence.Spawner
	notifier     domain.Notifier
	bus          domain.EventPublisher
	logger       zerolog.Logger
	now          func() time.Time
	safetyBuffer int
	catalog      map[string]models.ServiceOffering
}

func NewEngine(db *database.DB, l *ledger.Ledger, s *recurrence.Spawner, notifier domain.Notifier, bus domain.EventPublisher, logger *zerolog.Logger) *Engine {
	return &Engine{
		db:       db,
		ledger:   l,
		spawner:  s,
		notifier: notifier,
		bus:      bus,
		logger:   logger.With().Str("component", "lifecycle").Logger(),
		now:      time.Now,
	}
}

// SetSafetyBuffer overrides the escalation buffer stamped on new safety
// checks. Zero keeps the store default.
func (e *Engine) SetSafetyBuffer(minutes int) {
	e.safetyBuffer = minutes
}

// Pass evaluates automatic transitions for every open booking. A booking that
// fails or panics is logged and skipped; the rest of the pass continues.
func (e *Engine) Pass(ctx context.Context) error {
	bookings, err := e.db.ListOpenBookings(ctx)
	if err != nil {
		return fmt.Errorf("lifecycle pass: %w", err)
	}

	now := e.now()
	for _, b := range bookings {
		e.evaluateSafely(ctx, b, now)
	}
	return nil
}

func (e *Engine) evaluateSafely(ctx context.Context, b *models.Booking, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("booking_id", b.ID).
				Interface("panic", r).
				Msg("booking evaluation panicked")
		}
	}()

	if err := e.evaluate(ctx, b, now); err != nil {
		// ErrConcurrentModification means an editor won the race; the next
		// tick re-reads and re-evaluates.
		e.logger.Error().Err(err).
			Str("booking_id", b.ID).
			Str("status", string(b.Status)).
			Msg("booking evaluation failed")
	}
}

// evaluate applies at most one automatic transition per booking per pass, in
// the fixed priority order screening → deposit → start → completion.
func (e *Engine) evaluate(ctx context.Context, b *models.Booking, now time.Time) error {
	switch b.Status {
	case models.StatusScreening:
		return e.evaluateScreening(ctx, b)
	case models.StatusPendingDeposit:
		return e.evaluateDeposit(ctx, b)
	case models.StatusConfirmed:
		if now.Before(b.DateTime) {
			return nil
		}
		return e.start(ctx, b)
	case models.StatusInProgress:
		if now.Before(b.EndTime().Add(models.CompletionGrace)) {
			return nil
		}
		return e.complete(ctx, b, now)
	default:
		// Inquiry waits for an editor; terminal states never appear in the
		// open set.
		return nil
	}
}

// evaluateScreening moves a booking onward once its client is screened.
// Target depends on whether a deposit is still owed.
func (e *Engine) evaluateScreening(ctx context.Context, b *models.Booking) error {
	if b.ClientID == "" {
		return nil
	}
	client, err := e.db.GetClient(ctx, b.ClientID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	}
	if client.ScreeningStatus != models.ScreeningScreened {
		return nil
	}

	if b.DepositAmount > 0 && !b.DepositReceived {
		return e.writeStatus(ctx, b, models.StatusPendingDeposit)
	}
	return e.confirm(ctx, b)
}

func (e *Engine) evaluateDeposit(ctx context.Context, b *models.Booking) error {
	if !b.DepositReceived {
		return nil
	}
	return e.confirm(ctx, b)
}

func (e *Engine) confirm(ctx context.Context, b *models.Booking) error {
	if b.ConfirmedAt == nil {
		at := e.now()
		b.ConfirmedAt = &at
	}
	if err := e.writeStatus(ctx, b, models.StatusConfirmed); err != nil {
		return err
	}
	e.publish(events.EventBookingConfirmed, b)
	return nil
}

// start flips a confirmed booking to in-progress at its scheduled time and
// lazily creates the safety check when one is required. Both writes share a
// transaction; the UNIQUE constraint on safety_checks.booking_id keeps the
// creation idempotent.
func (e *Engine) start(ctx context.Context, b *models.Booking) error {
	from := b.Status
	err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		b.Status = models.StatusInProgress
		if err := e.db.UpdateBookingIn(ctx, tx, b); err != nil {
			return err
		}
		return e.ensureSafetyCheck(ctx, tx, b)
	})
	if err != nil {
		b.Status = from
		return err
	}

	metrics.IncTransition(string(from), string(b.Status))
	e.logger.Info().
		Str("booking_id", b.ID).
		Time("start", b.DateTime).
		Msg("session started")
	e.publish(events.EventBookingStarted, b)
	return nil
}

func (e *Engine) ensureSafetyCheck(ctx context.Context, q database.DBTX, b *models.Booking) error {
	if !b.RequiresSafetyCheck {
		return nil
	}
	existing, err := e.db.GetSafetyCheckForBooking(ctx, q, b.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	check := &models.SafetyCheck{
		BookingID:       b.ID,
		SafetyContactID: b.SafetyContactID,
		ScheduledTime:   b.DateTime.Add(time.Duration(b.SafetyCheckMinutesAfter) * time.Minute),
		BufferMinutes:   e.safetyBuffer,
	}
	if err := e.db.CreateSafetyCheck(ctx, q, check); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil
		}
		return err
	}
	e.logger.Info().
		Str("booking_id", b.ID).
		Time("scheduled", check.ScheduledTime).
		Msg("safety check scheduled")
	return nil
}

// complete finishes a session past its grace period: the status flip,
// settlement and client last-seen stamp commit together, then the spawner
// gets its chance to create the next occurrence.
func (e *Engine) complete(ctx context.Context, b *models.Booking, now time.Time) error {
	from := b.Status
	err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		return e.settleCompletionTx(ctx, tx, b, now)
	})
	if err != nil {
		b.Status = from
		return err
	}

	metrics.IncTransition(string(from), string(b.Status))
	e.logger.Info().
		Str("booking_id", b.ID).
		Str("client_id", b.ClientID).
		Msg("session completed")

	e.fire(ctx, domain.Notification{
		Title: "Session completed",
		Body:  fmt.Sprintf("Add session notes for %s.", b.Service),
		Tag:   "session-notes:" + b.ID,
	})
	e.publish(events.EventBookingCompleted, b)

	if e.spawner != nil {
		child, err := e.spawner.SpawnNext(ctx, b)
		if err != nil {
			e.logger.Error().Err(err).Str("booking_id", b.ID).Msg("recurrence spawn failed")
		} else if child != nil {
			e.publish(events.EventBookingSpawned, child)
		}
	}
	return nil
}

// settleCompletionTx applies the completion side effects inside the caller's
// transaction: stamp, status write, balance settlement, client last-seen.
func (e *Engine) settleCompletionTx(ctx context.Context, tx *sql.Tx, b *models.Booking, now time.Time) error {
	b.Status = models.StatusCompleted
	if b.CompletedAt == nil {
		b.CompletedAt = &now
	}
	if err := e.db.UpdateBookingIn(ctx, tx, b); err != nil {
		return err
	}
	if err := e.ledger.SettleTx(ctx, tx, b); err != nil {
		return err
	}
	return e.db.TouchClientLastSeen(ctx, tx, b.ClientID, now)
}

func (e *Engine) writeStatus(ctx context.Context, b *models.Booking, to models.BookingStatus) error {
	from := b.Status
	b.Status = to
	if err := e.db.UpdateBooking(ctx, b); err != nil {
		b.Status = from
		return err
	}
	metrics.IncTransition(string(from), string(to))
	e.logger.Info().
		Str("booking_id", b.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("booking transitioned")
	return nil
}

func (e *Engine) fire(ctx context.Context, n domain.Notification) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Fire(ctx, n); err != nil {
		e.logger.Error().Err(err).Str("tag", n.Tag).Msg("notification failed")
	}
}

func (e *Engine) publish(eventType string, b *models.Booking) {
	if e.bus == nil {
		return
	}
	if err := e.bus.PublishJSON(eventType, events.PayloadFor(b)); err != nil {
		e.logger.Error().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}
