package models

import "time"

// BookingStatus is the closed set of booking lifecycle states.
type BookingStatus string

const (
	StatusInquiry        BookingStatus = "inquiry"
	StatusScreening      BookingStatus = "screening"
	StatusPendingDeposit BookingStatus = "pending_deposit"
	StatusConfirmed      BookingStatus = "confirmed"
	StatusInProgress     BookingStatus = "in_progress"
	StatusCompleted      BookingStatus = "completed"
	StatusCancelled      BookingStatus = "cancelled"
	StatusNoShow         BookingStatus = "no_show"
)

// Valid reports whether s is a known lifecycle state.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusInquiry, StatusScreening, StatusPendingDeposit, StatusConfirmed,
		StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions by the engine.
func (s BookingStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether a booking in state s occupies calendar time, i.e.
// counts toward double-booking checks.
func (s BookingStatus) Active() bool {
	return s.Valid() && !s.Terminal()
}

type ScreeningStatus string

const (
	ScreeningUnscreened ScreeningStatus = "unscreened"
	ScreeningInProgress ScreeningStatus = "in_progress"
	ScreeningScreened   ScreeningStatus = "screened"
)

type RiskLevel string

const (
	RiskUnknown RiskLevel = "unknown"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
)

// PaymentLabel classifies a ledger entry.
type PaymentLabel string

const (
	LabelDeposit         PaymentLabel = "Deposit"
	LabelPayment         PaymentLabel = "Payment"
	LabelTip             PaymentLabel = "Tip"
	LabelAdjustment      PaymentLabel = "Adjustment"
	LabelCancellationFee PaymentLabel = "Cancellation Fee"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

const (
	CategoryBooking = "booking"
	CategoryTip     = "tip"
)

type SafetyCheckStatus string

const (
	SafetyPending   SafetyCheckStatus = "pending"
	SafetyCheckedIn SafetyCheckStatus = "checked_in"
	SafetyOverdue   SafetyCheckStatus = "overdue"
	SafetyAlert     SafetyCheckStatus = "alert"
)

// Recurrence describes how a booking repeats.
type Recurrence string

const (
	RecurrenceNone     Recurrence = "none"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiweekly Recurrence = "biweekly"
	RecurrenceMonthly  Recurrence = "monthly"
)

// NextAfter returns the start of the next occurrence computed from the
// previous occurrence's start, preserving time-of-day. ok is false when the
// recurrence does not repeat.
func (r Recurrence) NextAfter(start time.Time) (next time.Time, ok bool) {
	switch r {
	case RecurrenceWeekly:
		return start.AddDate(0, 0, 7), true
	case RecurrenceBiweekly:
		return start.AddDate(0, 0, 14), true
	case RecurrenceMonthly:
		return start.AddDate(0, 1, 0), true
	default:
		return time.Time{}, false
	}
}

// DayStatus is the availability marker of a calendar day.
type DayStatus string

const (
	DayOpen    DayStatus = "open"
	DayLimited DayStatus = "limited"
	DayBusy    DayStatus = "busy"
	DayOff     DayStatus = "off"
)

const (
	// DefaultTickInterval between automatic transition passes.
	DefaultTickInterval = 60 * time.Second

	// CompletionGrace past the scheduled end before a session auto-completes.
	CompletionGrace = 5 * time.Minute

	// DefaultSafetyBufferMinutes after the scheduled check-in before escalation.
	DefaultSafetyBufferMinutes = 15

	// SafetyReminderLead before the check-in deadline for the warning nudge.
	SafetyReminderLead = 5 * time.Minute
)
