// File: internal/infra/adapters/sheet/sheet_sink.go
package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"telegram-lead-bot/internal/config"
	"telegram-lead-bot/internal/domain/model"
	"telegram-lead-bot/internal/domain/ports/adapter"
	"telegram-lead-bot/internal/infra/i18n"
	"telegram-lead-bot/internal/infra/metrics"
)

var _ adapter.SubmissionSink = (*AppsScriptSink)(nil)

const (
	AuthBearer = "bearer"
	AuthBody   = "body"
	AuthJWT    = "jwt"
)

const notifyTimeout = 10 * time.Second

// maxResponseBody caps how much of the web app's reply is read.
const maxResponseBody = 64 << 10

var errNotConfirmed = errors.New("response does not confirm success")

// AppsScriptSink posts lead rows to a Google Apps Script web app. The shared
// secret travels as a bearer header, inside the body, or as the key of a
// short-lived HS256 token, depending on the configured auth mode.
type AppsScriptSink struct {
	endpoint     string
	secret       string
	authMode     string
	acceptAny2xx bool
	client       *http.Client

	notifier       adapter.Notifier
	operatorChatID string
	texts          *i18n.Translator
	log            *zerolog.Logger
}

func NewAppsScriptSink(
	cfg config.SheetConfig,
	notifier adapter.Notifier,
	operatorChatID string,
	texts *i18n.Translator,
	logger *zerolog.Logger,
) (*AppsScriptSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("sheet url empty")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid sheet url: %w", err)
	}
	switch cfg.AuthMode {
	case AuthBearer, AuthBody, AuthJWT:
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
	if cfg.AuthMode == AuthJWT && cfg.Secret == "" {
		return nil, errors.New("jwt auth mode needs a secret")
	}
	if notifier == nil || texts == nil {
		return nil, errors.New("notifier and texts are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AppsScriptSink{
		endpoint:       cfg.URL,
		secret:         cfg.Secret,
		authMode:       cfg.AuthMode,
		acceptAny2xx:   cfg.AcceptAny2xx,
		client:         &http.Client{Timeout: timeout},
		notifier:       notifier,
		operatorChatID: operatorChatID,
		texts:          texts,
		log:            logger,
	}, nil
}

// Submit makes exactly one call. On failure the operator chat, when
// configured, receives the raw error text.
func (s *AppsScriptSink) Submit(ctx context.Context, lead model.LeadSubmission) bool {
	start := time.Now()
	err := s.post(ctx, lead)
	metrics.ObserveSubmission(s.authMode, err == nil, time.Since(start))
	if err == nil {
		s.log.Info().
			Str("submission_id", lead.ID.String()).
			Str("chat_id", lead.ChatID).
			Msg("lead saved to sheet")
		return true
	}

	s.log.Error().Err(err).
		Str("submission_id", lead.ID.String()).
		Str("chat_id", lead.ChatID).
		Msg("sheet submission failed")
	if s.operatorChatID != "" {
		// a timed-out post leaves ctx expired
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		s.notifier.Send(nctx, s.operatorChatID, s.texts.T(i18n.KeyOperatorSheetError, err.Error()))
	}
	return false
}

func (s *AppsScriptSink) post(ctx context.Context, lead model.LeadSubmission) error {
	body, err := s.payload(lead)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", lead.ID.String())

	switch s.authMode {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+s.secret)
	case AuthJWT:
		token, err := s.signToken(lead)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sheet returned status %d: %s", resp.StatusCode, snippet(respBody))
	}
	if s.acceptAny2xx {
		return nil
	}
	return confirm(respBody)
}

func (s *AppsScriptSink) payload(lead model.LeadSubmission) ([]byte, error) {
	row := lead.Row()
	if s.authMode == AuthBody {
		return json.Marshal(struct {
			Secret string     `json:"secret"`
			Data   [][]string `json:"data"`
		}{Secret: s.secret, Data: [][]string{row}})
	}
	return json.Marshal(row)
}

func (s *AppsScriptSink) signToken(lead model.LeadSubmission) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   lead.ChatID,
		ID:        lead.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
}

// confirm accepts {"status":"success"}, {"result":"success"} or {"ok":true}.
func confirm(body []byte) error {
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%w: %s", errNotConfirmed, snippet(body))
	}
	res := gjson.ParseBytes(body)
	if res.Get("status").String() == "success" ||
		res.Get("result").String() == "success" ||
		res.Get("ok").Bool() {
		return nil
	}
	if msg := res.Get("error").String(); msg != "" {
		return fmt.Errorf("%w: %s", errNotConfirmed, msg)
	}
	return fmt.Errorf("%w: %s", errNotConfirmed, snippet(body))
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "…"
	}
	return string(b)
}
