package events

import (
	"encoding/json"
	"testing"
	"time"

	"clientbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONReachesSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got []BookingEventPayload
	bus.Subscribe(EventBookingConfirmed, func(ev *Event) error {
		var p BookingEventPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		got = append(got, p)
		return nil
	})

	b := &models.Booking{
		ID:       "b1",
		ClientID: "c1",
		Status:   models.StatusConfirmed,
		DateTime: time.Date(2026, 3, 6, 19, 0, 0, 0, time.UTC),
		BaseRate: 60000,
	}
	require.NoError(t, bus.PublishJSON(EventBookingConfirmed, PayloadFor(b)))

	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].BookingID)
	assert.Equal(t, models.Cents(60000), got[0].TotalCents)
	assert.Equal(t, "b1", got[0].RootID, "a chainless booking is its own root")
}

func TestPublishOnlyMatchingType(t *testing.T) {
	bus := NewEventBus()

	var confirmed, cancelled int
	bus.Subscribe(EventBookingConfirmed, func(*Event) error { confirmed++; return nil })
	bus.Subscribe(EventBookingCancelled, func(*Event) error { cancelled++; return nil })

	require.NoError(t, bus.PublishJSON(EventBookingConfirmed, BookingEventPayload{BookingID: "b1"}))

	assert.Equal(t, 1, confirmed)
	assert.Zero(t, cancelled)
}

func TestPublishOnNilBusIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: "b1"}))
}
