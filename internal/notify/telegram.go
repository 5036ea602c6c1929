package notify

import (
	"context"
	"fmt"

	"clientbook/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier pushes notifications to the provider's own chat.
// Interaction-required alerts disable Telegram's silent mode.
type TelegramNotifier struct {
	sender domain.TelegramSender
	chatID int64
}

func NewTelegramNotifier(sender domain.TelegramSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID}
}

func (n *TelegramNotifier) Fire(_ context.Context, notification domain.Notification) error {
	text := notification.Title
	if notification.Body != "" {
		text = fmt.Sprintf("*%s*\n%s", notification.Title, notification.Body)
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableNotification = !notification.RequireInteraction

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
