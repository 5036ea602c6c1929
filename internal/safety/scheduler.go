package safety

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clientbook/internal/database"
	"clientbook/internal/domain"
	"clientbook/internal/events"
	"clientbook/internal/metrics"
	"clientbook/internal/models"

	"github.com/rs/zerolog"
)

var ErrBadCheckState = errors.New("safety check is not in a state that allows this")

// Scheduler watches pending safety checks and escalates the ones whose
// check-in deadline passed. Reminder and overdue notifications are tracked
// in memory per check id so each fires once per process lifetime; the
// persisted status is the source of truth across restarts.
type Scheduler struct {
	db       *database.DB
	notifier domain.Notifier
	bus      domain.EventPublisher
	logger   zerolog.Logger
	now      func() time.Time

	mu          sync.Mutex
	remindedIDs map[string]bool
	overdueIDs  map[string]bool
}

func NewScheduler(db *database.DB, notifier domain.Notifier, bus domain.EventPublisher, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		db:          db,
		notifier:    notifier,
		bus:         bus,
		logger:      logger.With().Str("component", "safety").Logger(),
		now:         time.Now,
		remindedIDs: make(map[string]bool),
		overdueIDs:  make(map[string]bool),
	}
}

// Pass evaluates every pending check once. A failing check is logged and
// skipped so one bad row cannot stall the rest.
func (s *Scheduler) Pass(ctx context.Context) error {
	checks, err := s.db.ListSafetyChecksByStatus(ctx, models.SafetyPending)
	if err != nil {
		return fmt.Errorf("safety pass: %w", err)
	}

	now := s.now()
	for _, check := range checks {
		if err := s.evaluate(ctx, check, now); err != nil {
			s.logger.Error().Err(err).
				Str("check_id", check.ID).
				Str("booking_id", check.BookingID).
				Msg("safety check evaluation failed")
		}
	}
	return nil
}

func (s *Scheduler) evaluate(ctx context.Context, check *models.SafetyCheck, now time.Time) error {
	deadline := check.Deadline()

	if !now.Before(deadline) {
		return s.markOverdue(ctx, check)
	}

	if !now.Before(deadline.Add(-models.SafetyReminderLead)) {
		s.remind(ctx, check, deadline)
	}
	return nil
}

func (s *Scheduler) markOverdue(ctx context.Context, check *models.SafetyCheck) error {
	if err := s.db.UpdateSafetyCheckStatus(ctx, check.ID, models.SafetyOverdue, nil); err != nil {
		return err
	}

	s.mu.Lock()
	already := s.overdueIDs[check.ID]
	s.overdueIDs[check.ID] = true
	s.mu.Unlock()
	if already {
		return nil
	}

	metrics.IncSafetyOverdue()
	s.logger.Warn().
		Str("check_id", check.ID).
		Str("booking_id", check.BookingID).
		Time("deadline", check.Deadline()).
		Msg("safety check overdue")

	s.fire(ctx, domain.Notification{
		Title:              "Safety check overdue",
		Body:               fmt.Sprintf("No check-in by %s. Confirm you are safe or your safety contact will be alerted.", check.Deadline().Format("15:04")),
		Tag:                "safety-overdue:" + check.ID,
		RequireInteraction: true,
	})

	if s.bus != nil {
		_ = s.bus.PublishJSON(events.EventSafetyOverdue, map[string]string{
			"check_id":   check.ID,
			"booking_id": check.BookingID,
		})
	}
	return nil
}

func (s *Scheduler) remind(ctx context.Context, check *models.SafetyCheck, deadline time.Time) {
	s.mu.Lock()
	already := s.remindedIDs[check.ID]
	s.remindedIDs[check.ID] = true
	s.mu.Unlock()
	if already {
		return
	}

	s.fire(ctx, domain.Notification{
		Title: "Safety check-in due soon",
		Body:  fmt.Sprintf("Check in before %s.", deadline.Format("15:04")),
		Tag:   "safety-reminder:" + check.ID,
	})
}

// CheckIn marks a pending or overdue check as checked in. An overdue check-in
// is late but still ends the escalation.
func (s *Scheduler) CheckIn(ctx context.Context, checkID string) error {
	check, err := s.db.GetSafetyCheck(ctx, checkID)
	if err != nil {
		return err
	}
	if check.Status != models.SafetyPending && check.Status != models.SafetyOverdue {
		return fmt.Errorf("check in from %s: %w", check.Status, ErrBadCheckState)
	}

	at := s.now()
	if err := s.db.UpdateSafetyCheckStatus(ctx, checkID, models.SafetyCheckedIn, &at); err != nil {
		return err
	}

	s.forget(checkID)
	s.logger.Info().
		Str("check_id", checkID).
		Str("booking_id", check.BookingID).
		Time("at", at).
		Msg("safety check-in recorded")
	return nil
}

// Escalate moves an overdue check to alert and notifies the safety contact.
// Alert is terminal; only an operator decides what happens next.
func (s *Scheduler) Escalate(ctx context.Context, checkID string) error {
	check, err := s.db.GetSafetyCheck(ctx, checkID)
	if err != nil {
		return err
	}
	if check.Status != models.SafetyOverdue {
		return fmt.Errorf("escalate from %s: %w", check.Status, ErrBadCheckState)
	}

	if err := s.db.UpdateSafetyCheckStatus(ctx, checkID, models.SafetyAlert, nil); err != nil {
		return err
	}

	body := "Missed check-in escalated."
	if check.SafetyContactID != "" {
		if contact, err := s.db.GetSafetyContact(ctx, check.SafetyContactID); err == nil {
			body = fmt.Sprintf("Missed check-in escalated. Contact %s (%s).", contact.Name, contact.Phone)
		}
	}

	s.fire(ctx, domain.Notification{
		Title:              "Safety alert",
		Body:               body,
		Tag:                "safety-alert:" + check.ID,
		RequireInteraction: true,
	})

	s.logger.Warn().
		Str("check_id", checkID).
		Str("booking_id", check.BookingID).
		Msg("safety check escalated to alert")
	return nil
}

func (s *Scheduler) fire(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Fire(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("tag", n.Tag).Msg("notification failed")
	}
}

func (s *Scheduler) forget(checkID string) {
	s.mu.Lock()
	delete(s.remindedIDs, checkID)
	delete(s.overdueIDs, checkID)
	s.mu.Unlock()
}
