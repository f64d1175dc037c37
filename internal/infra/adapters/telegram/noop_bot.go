package telegram

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"telegram-lead-bot/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// noopHistory is how many recent messages NoopNotifier keeps.
const noopHistory = 100

// NoopNotifier implements adapter.Notifier for local/dev runs without a bot
// token. It logs messages instead of sending real Telegram messages and
// keeps the most recent ones for inspection.
type NoopNotifier struct {
	log *zerolog.Logger

	mu   sync.Mutex
	sent []SentMessage
}

type SentMessage struct {
	ChatID string
	Text   string
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (b *NoopNotifier) Send(ctx context.Context, chatID, text string) bool {
	if chatID == "" || ctx.Err() != nil {
		return false
	}
	b.log.Info().Str("chat_id", chatID).Str("text", text).Msg("[noop-telegram] message")
	b.mu.Lock()
	if len(b.sent) == noopHistory {
		copy(b.sent, b.sent[1:])
		b.sent = b.sent[:noopHistory-1]
	}
	b.sent = append(b.sent, SentMessage{ChatID: chatID, Text: text})
	b.mu.Unlock()
	return true
}

// Sent returns a copy of the recent messages, oldest first.
func (b *NoopNotifier) Sent() []SentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SentMessage(nil), b.sent...)
}
