package domain

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notification is a user-facing alert produced by the engine and the safety
// scheduler. Tag identifies the logical event for sink-side de-duplication.
type Notification struct {
	Title              string
	Body               string
	Tag                string
	RequireInteraction bool
}

// Notifier delivers a notification. Implementations must be safe for
// concurrent use; delivery is fire-and-forget from the engine's point of view.
type Notifier interface {
	Fire(ctx context.Context, n Notification) error
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SeenStore records one-shot markers, used to fire a notification tag at most
// once per window. MarkOnce returns true when the key was newly marked.
type SeenStore interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// TelegramSender is the slice of the Telegram client the notifier needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
