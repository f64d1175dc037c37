package telegram

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-lead-bot/internal/config"
	"telegram-lead-bot/internal/domain/ports/adapter"
	"telegram-lead-bot/internal/infra/metrics"
)

var _ adapter.Notifier = (*BotNotifier)(nil)

// BotNotifier sends plain sendMessage calls through tgbotapi.
type BotNotifier struct {
	bot       *tgbotapi.BotAPI
	parseMode string
	log       *zerolog.Logger
}

// NewBotNotifier authenticates the token (getMe) with an HTTP client bounded
// by cfg.Timeout.
func NewBotNotifier(cfg *config.BotConfig, logger *zerolog.Logger) (*BotNotifier, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if cfg.Token == "" {
		return nil, errors.New("bot token is empty")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := &http.Client{Timeout: cfg.Timeout}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, err
	}
	return &BotNotifier{bot: bot, parseMode: cfg.ParseMode, log: logger}, nil
}

// Username is the bot's @handle as reported by getMe.
func (n *BotNotifier) Username() string { return n.bot.Self.UserName }

// Send delivers text to chatID. Numeric IDs address users and groups;
// anything else is treated as a channel username. Errors are logged and
// reported as false.
func (n *BotNotifier) Send(ctx context.Context, chatID, text string) bool {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return false
	}
	if err := ctx.Err(); err != nil {
		n.log.Warn().Err(err).Str("chat_id", chatID).Msg("telegram send skipped: context done")
		metrics.IncTelegramMessage(false)
		return false
	}

	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	}
	msg.ParseMode = n.parseMode

	if _, err := n.bot.Send(msg); err != nil {
		n.log.Error().Err(err).Str("chat_id", chatID).Msg("telegram send failed")
		metrics.IncTelegramMessage(false)
		return false
	}
	metrics.IncTelegramMessage(true)
	return true
}
