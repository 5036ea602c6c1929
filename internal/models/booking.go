package models

import "time"

// Booking is the central entity: one scheduled session with a client.
type Booking struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id,omitempty"`

	Service  string `json:"service"`
	Location string `json:"location,omitempty"`

	DateTime    time.Time     `json:"date_time"`
	DurationMin int           `json:"duration_min"`
	Status      BookingStatus `json:"status"`

	BaseRate      Cents `json:"base_rate"`
	Extras        Cents `json:"extras"`
	TravelFee     Cents `json:"travel_fee"`
	DepositAmount Cents `json:"deposit_amount"`

	PaymentMethod string `json:"payment_method,omitempty"`
	DepositMethod string `json:"deposit_method,omitempty"`

	// Convenience caches recomputed by the ledger on every mutation.
	DepositReceived bool `json:"deposit_received"`
	PaymentReceived bool `json:"payment_received"`

	RequiresSafetyCheck     bool   `json:"requires_safety_check"`
	SafetyCheckMinutesAfter int    `json:"safety_check_minutes_after"`
	SafetyContactID         string `json:"safety_contact_id,omitempty"`

	Recurrence       Recurrence `json:"recurrence"`
	ParentBookingID  string     `json:"parent_booking_id,omitempty"`
	RecurrenceRootID string     `json:"recurrence_root_id,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Version int64 `json:"version"`
}

// Total is the full session price.
func (b *Booking) Total() Cents {
	return b.BaseRate + b.Extras + b.TravelFee
}

// EndTime is the scheduled end of the session.
func (b *Booking) EndTime() time.Time {
	return b.DateTime.Add(time.Duration(b.DurationMin) * time.Minute)
}

// RootID returns the id of the first booking in the recurrence chain.
func (b *Booking) RootID() string {
	if b.RecurrenceRootID != "" {
		return b.RecurrenceRootID
	}
	return b.ID
}

// Overlaps reports whether the booking's scheduled window intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.DateTime.Before(end) && start.Before(b.EndTime())
}
