package models

import "time"

// Client is a person bookings are made for. Bookings hold a weak reference to
// a client and must tolerate the client being deleted.
type Client struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`

	ScreeningStatus ScreeningStatus `json:"screening_status"`
	RiskLevel       RiskLevel       `json:"risk_level"`

	Notes    string     `json:"notes,omitempty"`
	LastSeen *time.Time `json:"last_seen,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
