package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"telegram-lead-bot/internal/domain"
	"telegram-lead-bot/internal/infra/i18n"
	"telegram-lead-bot/internal/infra/logging"
	"telegram-lead-bot/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	secretHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdate    = 1 << 20
)

var errTurnPanic = errors.New("turn panicked")

// handleWebhook acknowledges every POST with 200 "OK" so Telegram never
// redelivers an update; failures are reported to logs and the operator.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer acknowledge(w, r)

	l := logging.With(r.Context(), s.log)

	if s.secretToken != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(s.secretToken)) != 1 {
		metrics.IncWebhookUpdate("unauthorized")
		l.Warn().Str("remote", r.RemoteAddr).Msg("webhook secret token mismatch, update dropped")
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdate)).Decode(&update); err != nil {
		metrics.IncWebhookUpdate("malformed")
		l.Warn().Err(err).Msg("cannot decode update")
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		metrics.IncWebhookUpdate("non_text")
		l.Debug().Int("update_id", update.UpdateID).Msg("update without message text ignored")
		return
	}
	metrics.IncWebhookUpdate("text")

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	ctx := logging.WithChatID(r.Context(), chatID)
	l = logging.With(ctx, s.log)

	err := s.runTurn(ctx, chatID, msg.Text)
	switch {
	case err == nil:
		metrics.IncTurn("ok")
	case errors.Is(err, domain.ErrTurnInProgress):
		metrics.IncTurn("busy")
		l.Warn().Int("update_id", update.UpdateID).Msg("turn already in progress, duplicate update dropped")
	default:
		if errors.Is(err, errTurnPanic) {
			metrics.IncTurn("panic")
		} else {
			metrics.IncTurn("error")
		}
		l.Error().Err(err).Int("update_id", update.UpdateID).Msg("conversation turn failed")
		s.notifyOperator(ctx, err)
	}
}

func (s *Server) runTurn(ctx context.Context, chatID, text string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errTurnPanic, rec)
		}
	}()
	return s.conv.HandleMessage(ctx, chatID, text)
}

func (s *Server) notifyOperator(ctx context.Context, turnErr error) {
	if s.operatorChatID == "" {
		return
	}
	// the turn may have consumed the request deadline
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.notifier.Send(nctx, s.operatorChatID, s.texts.T(i18n.KeyOperatorCritical, turnErr.Error()))
}

func acknowledge(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
