package models

import "time"

// SafetyCheck is a scheduled check-in created when a booking starts.
// At most one exists per booking.
type SafetyCheck struct {
	ID              string            `json:"id"`
	BookingID       string            `json:"booking_id"`
	SafetyContactID string            `json:"safety_contact_id,omitempty"`
	ScheduledTime   time.Time         `json:"scheduled_time"`
	BufferMinutes   int               `json:"buffer_minutes"`
	Status          SafetyCheckStatus `json:"status"`
	CheckedInAt     *time.Time        `json:"checked_in_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Deadline is the moment a pending check escalates to overdue.
func (c *SafetyCheck) Deadline() time.Time {
	return c.ScheduledTime.Add(time.Duration(c.BufferMinutes) * time.Minute)
}

// SafetyContact is the person notified when a check-in is missed.
type SafetyContact struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
