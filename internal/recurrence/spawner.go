package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clientbook/internal/database"
	"clientbook/internal/metrics"
	"clientbook/internal/models"

	"github.com/rs/zerolog"
)

// QuotaFunc reports whether another booking may be created on the given day.
// Nil means no quota applies.
type QuotaFunc func(ctx context.Context, day time.Time) (bool, error)

// Spawner creates the next occurrence of a recurring booking after the
// current one completes. Each completed occurrence spawns at most one child,
// so a chain grows by exactly one link per completion.
type Spawner struct {
	db     *database.DB
	logger zerolog.Logger
	quota  QuotaFunc
}

func New(db *database.DB, logger *zerolog.Logger) *Spawner {
	return &Spawner{
		db:     db,
		logger: logger.With().Str("component", "recurrence").Logger(),
	}
}

// SetQuota installs an optional per-day booking quota check.
func (s *Spawner) SetQuota(q QuotaFunc) {
	s.quota = q
}

// SpawnNext creates the follow-up occurrence for a just-completed booking.
// Returns the child, or nil when one of the gates declines: non-recurring
// booking, child already spawned, client missing or not screened, or day
// quota exhausted.
func (s *Spawner) SpawnNext(ctx context.Context, completed *models.Booking) (*models.Booking, error) {
	next, ok := completed.Recurrence.NextAfter(completed.DateTime)
	if !ok {
		return nil, nil
	}

	exists, err := s.db.ChildBookingExists(ctx, completed.ID)
	if err != nil {
		return nil, fmt.Errorf("spawn next: %w", err)
	}
	if exists {
		return nil, nil
	}

	if completed.ClientID == "" {
		return nil, nil
	}
	client, err := s.db.GetClient(ctx, completed.ClientID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.logger.Warn().
				Str("booking_id", completed.ID).
				Str("client_id", completed.ClientID).
				Msg("recurring booking references a deleted client, not spawning")
			return nil, nil
		}
		return nil, fmt.Errorf("spawn next: %w", err)
	}
	if client.ScreeningStatus != models.ScreeningScreened {
		s.logger.Info().
			Str("booking_id", completed.ID).
			Str("client_id", client.ID).
			Str("screening", string(client.ScreeningStatus)).
			Msg("client not screened, not spawning")
		return nil, nil
	}

	if s.quota != nil {
		allowed, err := s.quota(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("spawn next: %w", err)
		}
		if !allowed {
			s.logger.Info().
				Str("booking_id", completed.ID).
				Time("next", next).
				Msg("day quota reached, not spawning")
			return nil, nil
		}
	}

	child := &models.Booking{
		ClientID:                completed.ClientID,
		Service:                 completed.Service,
		Location:                completed.Location,
		DateTime:                next,
		DurationMin:             completed.DurationMin,
		Status:                  models.StatusConfirmed,
		BaseRate:                completed.BaseRate,
		Extras:                  completed.Extras,
		TravelFee:               completed.TravelFee,
		DepositAmount:           completed.DepositAmount,
		PaymentMethod:           completed.PaymentMethod,
		DepositMethod:           completed.DepositMethod,
		RequiresSafetyCheck:     completed.RequiresSafetyCheck,
		SafetyCheckMinutesAfter: completed.SafetyCheckMinutesAfter,
		SafetyContactID:         completed.SafetyContactID,
		Recurrence:              completed.Recurrence,
		ParentBookingID:         completed.ID,
		RecurrenceRootID:        completed.RootID(),
	}
	now := time.Now()
	child.ConfirmedAt = &now

	if err := s.db.CreateBooking(ctx, child); err != nil {
		return nil, fmt.Errorf("spawn next: %w", err)
	}

	metrics.IncSpawned()
	s.logger.Info().
		Str("parent_id", completed.ID).
		Str("child_id", child.ID).
		Str("root_id", child.RecurrenceRootID).
		Time("next", next).
		Msg("spawned recurring booking")
	return child, nil
}
