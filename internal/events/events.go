package events

import (
	"encoding/json"
	"sync"
	"time"

	"clientbook/internal/models"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingStarted   = "booking_started"
	EventBookingCompleted = "booking_completed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingNoShow    = "booking_no_show"
	EventBookingSpawned   = "booking_spawned"
	EventSafetyOverdue    = "safety_check_overdue"
)

// BookingEventPayload is the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID  string               `json:"booking_id"`
	ClientID   string               `json:"client_id,omitempty"`
	Status     models.BookingStatus `json:"status"`
	Service    string               `json:"service,omitempty"`
	Start      time.Time            `json:"start"`
	TotalCents models.Cents         `json:"total_cents"`
	ParentID   string               `json:"parent_id,omitempty"`
	RootID     string               `json:"root_id,omitempty"`
}

// PayloadFor builds the standard payload for a booking.
func PayloadFor(b *models.Booking) BookingEventPayload {
	return BookingEventPayload{
		BookingID:  b.ID,
		ClientID:   b.ClientID,
		Status:     b.Status,
		Service:    b.Service,
		Start:      b.DateTime,
		TotalCents: b.Total(),
		ParentID:   b.ParentBookingID,
		RootID:     b.RootID(),
	}
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
