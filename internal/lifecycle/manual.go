package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clientbook/internal/database"
	"clientbook/internal/events"
	"clientbook/internal/metrics"
	"clientbook/internal/models"
)

var ErrInvalidTransition = errors.New("status transition not allowed")

// allowedManualTransition is the editor-facing transition table. Automatic
// transitions never consult it; they are hardcoded in evaluate. Terminal
// states admit nothing, everything else is at the editor's discretion,
// including jumping straight to completed.
func allowedManualTransition(from, to models.BookingStatus) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	if from.Terminal() {
		return false
	}
	return true
}

// SetStatus applies an editor-initiated status change with the same side
// effects the automatic engine would have produced: confirmation stamps,
// settlement on completed, cancellation stamps, risk escalation on no-show.
// Jumping to completed does not spawn a recurrence; only automatic
// completion does.
func (e *Engine) SetStatus(ctx context.Context, bookingID string, to models.BookingStatus) error {
	b, err := e.db.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	from := b.Status
	if !allowedManualTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
	}

	now := e.now()
	switch to {
	case models.StatusConfirmed:
		if b.ConfirmedAt == nil {
			b.ConfirmedAt = &now
		}
		b.Status = to
		err = e.db.UpdateBooking(ctx, b)

	case models.StatusInProgress:
		err = e.db.WithTx(ctx, func(tx *sql.Tx) error {
			b.Status = to
			if err := e.db.UpdateBookingIn(ctx, tx, b); err != nil {
				return err
			}
			return e.ensureSafetyCheck(ctx, tx, b)
		})

	case models.StatusCompleted:
		err = e.db.WithTx(ctx, func(tx *sql.Tx) error {
			return e.settleCompletionTx(ctx, tx, b, now)
		})

	case models.StatusCancelled:
		if b.CancelledAt == nil {
			b.CancelledAt = &now
		}
		b.Status = to
		err = e.db.UpdateBooking(ctx, b)

	case models.StatusNoShow:
		b.Status = to
		if err = e.db.UpdateBooking(ctx, b); err == nil {
			e.escalateNoShowRisk(ctx, b)
		}

	default:
		b.Status = to
		err = e.db.UpdateBooking(ctx, b)
	}
	if err != nil {
		b.Status = from
		return err
	}

	metrics.IncTransition(string(from), string(to))
	e.logger.Info().
		Str("booking_id", b.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("status set manually")

	switch to {
	case models.StatusConfirmed:
		e.publish(events.EventBookingConfirmed, b)
	case models.StatusCompleted:
		e.publish(events.EventBookingCompleted, b)
	case models.StatusCancelled:
		e.publish(events.EventBookingCancelled, b)
	case models.StatusNoShow:
		e.publish(events.EventBookingNoShow, b)
	}
	return nil
}

// escalateNoShowRisk bumps the client's risk level after a no-show: two or
// more no-shows mean high risk, a first one moves unknown/low to medium.
// Best effort; a missing client is fine.
func (e *Engine) escalateNoShowRisk(ctx context.Context, b *models.Booking) {
	if b.ClientID == "" {
		return
	}
	client, err := e.db.GetClient(ctx, b.ClientID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			e.logger.Error().Err(err).Str("client_id", b.ClientID).Msg("risk escalation read failed")
		}
		return
	}

	count, err := e.db.CountClientNoShows(ctx, b.ClientID)
	if err != nil {
		e.logger.Error().Err(err).Str("client_id", b.ClientID).Msg("no-show count failed")
		return
	}

	var target models.RiskLevel
	switch {
	case count >= 2:
		target = models.RiskHigh
	case client.RiskLevel == models.RiskUnknown || client.RiskLevel == models.RiskLow:
		target = models.RiskMedium
	default:
		return
	}
	if target == client.RiskLevel {
		return
	}

	if err := e.db.UpdateClientRisk(ctx, b.ClientID, target); err != nil {
		e.logger.Error().Err(err).Str("client_id", b.ClientID).Msg("risk escalation failed")
		return
	}
	e.logger.Warn().
		Str("client_id", b.ClientID).
		Int("no_shows", count).
		Str("risk", string(target)).
		Msg("client risk escalated after no-show")
}
