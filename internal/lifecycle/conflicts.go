package lifecycle

import (
	"context"
	"fmt"
	"time"

	"clientbook/internal/events"
	"clientbook/internal/models"
)

// Conflict describes why a booking slot was rejected. DoubleBook conflicts
// always require an explicit override; availability conflicts additionally
// narrow the day when overridden.
type Conflict struct {
	DoubleBook bool
	DayStatus  models.DayStatus
	Reason     string
}

func (c *Conflict) Error() string {
	return c.Reason
}

// CheckConflicts inspects the booking's slot for overlap with another active
// booking and for a day-availability record excluding it. excludeID skips the
// booking itself when re-checking an edit. Returns nil when the slot is free.
func (e *Engine) CheckConflicts(ctx context.Context, b *models.Booking, excludeID string) (*Conflict, error) {
	start, end := b.DateTime, b.EndTime()

	open, err := e.db.ListOpenBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	for _, other := range open {
		if other.ID == excludeID || !other.Status.Active() {
			continue
		}
		if other.Overlaps(start, end) {
			return &Conflict{
				DoubleBook: true,
				Reason: fmt.Sprintf("overlaps booking %s at %s",
					other.ID, other.DateTime.Format("2006-01-02 15:04")),
			}, nil
		}
	}

	day, err := e.db.GetDayAvailability(ctx, dayOf(start))
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if day != nil && !day.Covers(start, end) {
		return &Conflict{
			DayStatus: day.Status,
			Reason:    fmt.Sprintf("day %s is %s", day.Date.Format("2006-01-02"), day.Status),
		}, nil
	}
	return nil, nil
}

// SetServiceCatalog installs the offerings used to prefill rate and duration
// on new bookings that name a known service.
func (e *Engine) SetServiceCatalog(services []models.ServiceOffering) {
	e.catalog = make(map[string]models.ServiceOffering, len(services))
	for _, s := range services {
		e.catalog[s.Name] = s
	}
}

// Schedule persists a new or edited booking after conflict checks. A conflict
// without override is returned to the caller untouched; with override a
// double-book is forced through and an availability conflict narrows the
// day's window to exactly this slot.
func (e *Engine) Schedule(ctx context.Context, b *models.Booking, override bool) error {
	if b.Status == "" {
		b.Status = models.StatusInquiry
	}
	if offering, ok := e.catalog[b.Service]; ok && b.Version == 0 {
		if b.DurationMin == 0 {
			b.DurationMin = offering.DurationMin
		}
		if b.BaseRate == 0 {
			b.BaseRate = offering.BaseRate
		}
	}
	if !b.Status.Valid() {
		return fmt.Errorf("schedule: unknown status %q", b.Status)
	}
	if b.DurationMin <= 0 {
		return fmt.Errorf("schedule: duration must be positive")
	}

	isNew := b.Version == 0
	excludeID := b.ID
	if isNew {
		excludeID = ""
	}

	conflict, err := e.CheckConflicts(ctx, b, excludeID)
	if err != nil {
		return err
	}
	if conflict != nil {
		if !override {
			return conflict
		}
		if !conflict.DoubleBook {
			if err := e.narrowDayToBooking(ctx, b); err != nil {
				return err
			}
		}
		e.logger.Warn().
			Str("booking_id", b.ID).
			Bool("double_book", conflict.DoubleBook).
			Str("reason", conflict.Reason).
			Msg("conflict overridden")
	}

	if isNew {
		if err := e.db.CreateBooking(ctx, b); err != nil {
			return err
		}
		e.publish(events.EventBookingCreated, b)
	} else {
		if err := e.db.UpdateBooking(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) narrowDayToBooking(ctx context.Context, b *models.Booking) error {
	day := dayOf(b.DateTime)
	startMin := b.DateTime.Hour()*60 + b.DateTime.Minute()
	endMin := startMin + b.DurationMin
	return e.db.NarrowDayToWindow(ctx, day, startMin, endMin)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
