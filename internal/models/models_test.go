package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingDerivedFields(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.Local)
	b := &Booking{
		ID:          "b1",
		DateTime:    start,
		DurationMin: 120,
		BaseRate:    60000,
		Extras:      5000,
		TravelFee:   2500,
	}

	assert.Equal(t, Cents(67500), b.Total())
	assert.Equal(t, start.Add(2*time.Hour), b.EndTime())
	assert.Equal(t, "b1", b.RootID())

	b.RecurrenceRootID = "root"
	assert.Equal(t, "root", b.RootID())
}

func TestBookingOverlaps(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)
	b := &Booking{DateTime: start, DurationMin: 60}

	assert.True(t, b.Overlaps(start.Add(30*time.Minute), start.Add(90*time.Minute)))
	assert.True(t, b.Overlaps(start.Add(-30*time.Minute), start.Add(time.Minute)))
	// Touching ranges do not overlap.
	assert.False(t, b.Overlaps(start.Add(time.Hour), start.Add(2*time.Hour)))
	assert.False(t, b.Overlaps(start.Add(-time.Hour), start))
}

func TestRecurrenceNextAfter(t *testing.T) {
	start := time.Date(2026, 1, 31, 19, 15, 0, 0, time.Local)

	next, ok := RecurrenceWeekly.NextAfter(start)
	require.True(t, ok)
	assert.Equal(t, start.AddDate(0, 0, 7), next)

	next, ok = RecurrenceBiweekly.NextAfter(start)
	require.True(t, ok)
	assert.Equal(t, start.AddDate(0, 0, 14), next)

	next, ok = RecurrenceMonthly.NextAfter(start)
	require.True(t, ok)
	// Calendar-month arithmetic: Jan 31 + 1 month normalizes per time.AddDate.
	assert.Equal(t, start.AddDate(0, 1, 0), next)
	assert.Equal(t, 19, next.Hour())
	assert.Equal(t, 15, next.Minute())

	_, ok = RecurrenceNone.NextAfter(start)
	assert.False(t, ok)
}

func TestBookingStatusSets(t *testing.T) {
	for _, s := range []BookingStatus{StatusCompleted, StatusCancelled, StatusNoShow} {
		assert.True(t, s.Terminal(), s)
		assert.False(t, s.Active(), s)
	}
	for _, s := range []BookingStatus{StatusInquiry, StatusScreening, StatusPendingDeposit, StatusConfirmed, StatusInProgress} {
		assert.False(t, s.Terminal(), s)
		assert.True(t, s.Active(), s)
	}
	assert.False(t, BookingStatus("bogus").Valid())
	assert.False(t, BookingStatus("bogus").Active())
}

func TestDayAvailabilityCovers(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	tests := []struct {
		name  string
		rec   DayAvailability
		start time.Time
		end   time.Time
		want  bool
	}{
		{"open day", DayAvailability{Date: day, Status: DayOpen}, at(9, 0), at(11, 0), true},
		{"off day", DayAvailability{Date: day, Status: DayOff}, at(9, 0), at(11, 0), false},
		{"busy day", DayAvailability{Date: day, Status: DayBusy}, at(9, 0), at(11, 0), false},
		{"limited inside", DayAvailability{Date: day, Status: DayLimited, StartMinute: 540, EndMinute: 720}, at(9, 0), at(11, 0), true},
		{"limited before", DayAvailability{Date: day, Status: DayLimited, StartMinute: 540, EndMinute: 720}, at(8, 0), at(10, 0), false},
		{"limited after", DayAvailability{Date: day, Status: DayLimited, StartMinute: 540, EndMinute: 720}, at(11, 0), at(13, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Covers(tt.start, tt.end))
		})
	}
}

func TestCentsString(t *testing.T) {
	assert.Equal(t, "600.00", Cents(60000).String())
	assert.Equal(t, "4.05", Cents(405).String())
	assert.Equal(t, "-12.50", Cents(-1250).String())
	assert.Equal(t, "0.00", Cents(0).String())
	assert.InDelta(t, 600.0, Cents(60000).Units(), 0.0001)
}
