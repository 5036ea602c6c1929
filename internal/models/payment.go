package models

import "time"

// BookingPayment is one ledger entry of money moved against a booking.
// Entries are append-only in intent; removal reverses the paired transaction.
type BookingPayment struct {
	ID        string       `json:"id"`
	BookingID string       `json:"booking_id"`
	Amount    Cents        `json:"amount"`
	Method    string       `json:"method,omitempty"`
	Label     PaymentLabel `json:"label"`
	Date      time.Time    `json:"date"`
	Notes     string       `json:"notes,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Transaction is a financial ledger entry independent of bookings. Payments
// with a positive amount mirror exactly one income transaction, linked by
// PaymentID so removal is exact.
type Transaction struct {
	ID          string          `json:"id"`
	PaymentID   string          `json:"payment_id,omitempty"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Amount      Cents           `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
