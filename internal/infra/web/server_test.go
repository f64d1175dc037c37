//go:build !integration

package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-lead-bot/internal/config"
	"telegram-lead-bot/internal/domain"
	"telegram-lead-bot/internal/infra/i18n"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

type turn struct {
	chatID string
	text   string
}

type fakeConversation struct {
	mu    sync.Mutex
	turns []turn
	err   error
	panic bool
}

func (f *fakeConversation) HandleMessage(_ context.Context, chatID, text string) error {
	f.mu.Lock()
	f.turns = append(f.turns, turn{chatID: chatID, text: text})
	f.mu.Unlock()
	if f.panic {
		panic("nil map write")
	}
	return f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []turn
}

func (f *fakeNotifier) Send(_ context.Context, chatID, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, turn{chatID: chatID, text: text})
	return true
}

func newTestServer(t *testing.T, conv *fakeConversation, n *fakeNotifier, secret string) http.Handler {
	t.Helper()
	texts, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	cfg := config.ServerConfig{WebhookPath: "/webhook", SecretToken: secret, TurnTimeout: time.Second}
	return NewServer(conv, n, texts, cfg, "999", newTestLogger()).Router()
}

const textUpdate = `{"update_id":1,"message":{"message_id":5,"date":0,"chat":{"id":42,"type":"private"},"text":"  Alice "}}`

func post(h http.Handler, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWebhook(t *testing.T) {
	t.Run("text message reaches the conversation", func(t *testing.T) {
		conv, n := &fakeConversation{}, &fakeNotifier{}
		rr := post(newTestServer(t, conv, n, ""), textUpdate, nil)

		if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
			t.Fatalf("expected 200 OK, got %d %q", rr.Code, rr.Body.String())
		}
		if len(conv.turns) != 1 || conv.turns[0].chatID != "42" || conv.turns[0].text != "  Alice " {
			t.Fatalf("unexpected turns %+v", conv.turns)
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected a trace id header")
		}
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
		rr := httptest.NewRecorder()
		newTestServer(t, &fakeConversation{}, &fakeNotifier{}, "").ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rr.Code)
		}
	})

	tests := []struct {
		name      string
		body      string
		hdr       map[string]string
		conv      *fakeConversation
		wantTurns int
		wantOps   int
	}{
		{name: "malformed json", body: `{"update_id":`, conv: &fakeConversation{}},
		{name: "update without message", body: `{"update_id":2,"callback_query":{"id":"1"}}`, conv: &fakeConversation{}},
		{name: "message without text", body: `{"update_id":3,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`, conv: &fakeConversation{}},
		{name: "store failure", body: textUpdate, conv: &fakeConversation{err: errors.New("redis: connection refused")}, wantTurns: 1, wantOps: 1},
		{name: "panic in turn", body: textUpdate, conv: &fakeConversation{panic: true}, wantTurns: 1, wantOps: 1},
		{name: "busy chat", body: textUpdate, conv: &fakeConversation{err: domain.ErrTurnInProgress}, wantTurns: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name+" is still acknowledged", func(t *testing.T) {
			n := &fakeNotifier{}
			rr := post(newTestServer(t, tt.conv, n, ""), tt.body, tt.hdr)
			if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
				t.Fatalf("expected 200 OK, got %d %q", rr.Code, rr.Body.String())
			}
			if len(tt.conv.turns) != tt.wantTurns {
				t.Errorf("wanted %d turns, got %d", tt.wantTurns, len(tt.conv.turns))
			}
			if len(n.sent) != tt.wantOps {
				t.Fatalf("wanted %d operator messages, got %+v", tt.wantOps, n.sent)
			}
			if tt.wantOps > 0 && (n.sent[0].chatID != "999" || !strings.HasPrefix(n.sent[0].text, "💥 Критическая ошибка:")) {
				t.Errorf("unexpected operator message %+v", n.sent[0])
			}
		})
	}
}

func TestWebhookSecretToken(t *testing.T) {
	conv := &fakeConversation{}
	h := newTestServer(t, conv, &fakeNotifier{}, "hook-secret")

	rr := post(h, textUpdate, map[string]string{secretHeader: "wrong"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for a dropped update, got %d", rr.Code)
	}
	if len(conv.turns) != 0 {
		t.Fatal("update with a wrong secret must not reach the conversation")
	}

	post(h, textUpdate, map[string]string{secretHeader: "hook-secret"})
	if len(conv.turns) != 1 {
		t.Fatalf("expected the authorized update to run, got %d turns", len(conv.turns))
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, &fakeConversation{}, &fakeNotifier{}, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", rr.Code)
	}
}
