package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"clientbook/internal/domain"
	"clientbook/internal/repository"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	fired []domain.Notification
	err   error
}

func (s *recordingSink) Fire(_ context.Context, n domain.Notification) error {
	s.fired = append(s.fired, n)
	return s.err
}

func TestDedupNotifierSuppressesRepeats(t *testing.T) {
	logger := zerolog.Nop()
	sink := &recordingSink{}
	d := NewDedupNotifier(sink, repository.NewMemorySeenStore(), time.Hour, &logger)
	ctx := context.Background()

	require.NoError(t, d.Fire(ctx, domain.Notification{Title: "a", Tag: "t1"}))
	require.NoError(t, d.Fire(ctx, domain.Notification{Title: "a", Tag: "t1"}))
	require.NoError(t, d.Fire(ctx, domain.Notification{Title: "b", Tag: "t2"}))

	require.Len(t, sink.fired, 2)
	assert.Equal(t, "t1", sink.fired[0].Tag)
	assert.Equal(t, "t2", sink.fired[1].Tag)
}

func TestDedupNotifierPassesUntagged(t *testing.T) {
	logger := zerolog.Nop()
	sink := &recordingSink{}
	d := NewDedupNotifier(sink, repository.NewMemorySeenStore(), time.Hour, &logger)
	ctx := context.Background()

	require.NoError(t, d.Fire(ctx, domain.Notification{Title: "a"}))
	require.NoError(t, d.Fire(ctx, domain.Notification{Title: "a"}))
	assert.Len(t, sink.fired, 2, "untagged notifications are never deduped")
}

type failingSeenStore struct{}

func (failingSeenStore) MarkOnce(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("store down")
}

func TestDedupNotifierFiresWhenStoreFails(t *testing.T) {
	logger := zerolog.Nop()
	sink := &recordingSink{}
	d := NewDedupNotifier(sink, failingSeenStore{}, time.Hour, &logger)

	require.NoError(t, d.Fire(context.Background(), domain.Notification{Tag: "t1"}))
	assert.Len(t, sink.fired, 1, "a broken dedup store never swallows alerts")
}

func TestMultiNotifierFansOut(t *testing.T) {
	first := &recordingSink{err: errors.New("boom")}
	second := &recordingSink{}
	m := NewMultiNotifier(first, second)

	err := m.Fire(context.Background(), domain.Notification{Tag: "t"})
	assert.Error(t, err)
	assert.Len(t, first.fired, 1)
	assert.Len(t, second.fired, 1, "later sinks still fire after an earlier error")
}

type fakeTelegram struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramNotifierMessage(t *testing.T) {
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg, 42)

	err := n.Fire(context.Background(), domain.Notification{
		Title:              "Safety check overdue",
		Body:               "No check-in by 21:30.",
		RequireInteraction: true,
	})
	require.NoError(t, err)
	require.Len(t, tg.sent, 1)

	msg, ok := tg.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "Safety check overdue")
	assert.Contains(t, msg.Text, "No check-in by 21:30.")
	assert.False(t, msg.DisableNotification, "interaction-required alerts are loud")
}

func TestTelegramNotifierSilentForRegular(t *testing.T) {
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg, 42)

	require.NoError(t, n.Fire(context.Background(), domain.Notification{Title: "Session completed"}))
	msg := tg.sent[0].(tgbotapi.MessageConfig)
	assert.True(t, msg.DisableNotification)
	assert.Equal(t, "Session completed", msg.Text)
}

func TestTelegramNotifierSendError(t *testing.T) {
	tg := &fakeTelegram{err: errors.New("telegram down")}
	n := NewTelegramNotifier(tg, 42)

	err := n.Fire(context.Background(), domain.Notification{Title: "x"})
	assert.Error(t, err)
}
