package web

import (
	"net/http"
	"strings"
	"time"

	"telegram-lead-bot/internal/config"
	"telegram-lead-bot/internal/domain/ports/adapter"
	"telegram-lead-bot/internal/infra/i18n"
	"telegram-lead-bot/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is the inbound side of the bot: the Telegram webhook plus
// health and metrics endpoints.
type Server struct {
	conv           usecase.ConversationUseCase
	notifier       adapter.Notifier
	texts          *i18n.Translator
	operatorChatID string

	webhookPath string
	secretToken string
	turnTimeout time.Duration
	log         *zerolog.Logger
}

func NewServer(
	conv usecase.ConversationUseCase,
	notifier adapter.Notifier,
	texts *i18n.Translator,
	cfg config.ServerConfig,
	operatorChatID string,
	logger *zerolog.Logger,
) *Server {
	path := cfg.WebhookPath
	if path == "" {
		path = "/webhook"
	}
	return &Server{
		conv:           conv,
		notifier:       notifier,
		texts:          texts,
		operatorChatID: strings.TrimSpace(operatorChatID),
		webhookPath:    path,
		secretToken:    cfg.SecretToken,
		turnTimeout:    cfg.TurnTimeout,
		log:            logger,
	}
}

// Router builds the chi router with the trace, log and recover chain.
// Panics on the webhook route are still acknowledged with 200.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log, nil))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	// Telegram redelivers anything that is not a 200
	r.With(Recover(s.log, acknowledge), Timeout(s.turnTimeout)).HandleFunc(s.webhookPath, s.handleWebhook)
	return r
}
