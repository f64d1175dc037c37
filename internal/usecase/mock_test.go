//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-lead-bot/internal/domain"
	"telegram-lead-bot/internal/domain/model"
	"telegram-lead-bot/internal/domain/ports/adapter"
	"telegram-lead-bot/internal/domain/ports/repository"
	"telegram-lead-bot/internal/infra/i18n"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestTranslator() *i18n.Translator {
	t, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		panic(err)
	}
	return t
}

// =============================
// Repositories
// =============================

// ---- Mock StateRepository ----

// MockStateRepo fails on a done context the way the real stores do.
type MockStateRepo struct {
	mu    sync.Mutex
	store map[string]model.ConversationState

	Sets    int
	Deletes int

	GetErr    error
	SetErr    error
	DeleteErr error
}

var _ repository.StateRepository = (*MockStateRepo)(nil)

func NewMockStateRepo() *MockStateRepo {
	return &MockStateRepo{store: make(map[string]model.ConversationState)}
}

func (m *MockStateRepo) Get(ctx context.Context, chatID string) (*model.ConversationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	st, ok := m.store[chatID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MockStateRepo) Set(ctx context.Context, state *model.ConversationState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if state == nil || state.ChatID == "" {
		return domain.ErrInvalidArgument
	}
	m.Sets++
	if state.Step == model.StepNone {
		delete(m.store, state.ChatID)
		return nil
	}
	m.store[state.ChatID] = *state
	return nil
}

func (m *MockStateRepo) Delete(ctx context.Context, chatID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deletes++
	delete(m.store, chatID)
	return nil
}

// Seed stores st directly, bypassing counters.
func (m *MockStateRepo) Seed(st model.ConversationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[st.ChatID] = st
}

func (m *MockStateRepo) Snapshot(chatID string) (model.ConversationState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.store[chatID]
	return st, ok
}

// ---- Mock TurnLocker ----

type MockLocker struct {
	mu       sync.Mutex
	held     map[string]string
	Unlocked []string
	TryErr   error
}

var _ repository.TurnLocker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker { return &MockLocker{held: make(map[string]string)} }

func (m *MockLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TryErr != nil {
		return "", m.TryErr
	}
	if _, ok := m.held[key]; ok {
		return "", domain.ErrTurnInProgress
	}
	token := uuid.NewString()
	m.held[key] = token
	return token, nil
}

func (m *MockLocker) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	m.Unlocked = append(m.Unlocked, key)
	return nil
}

// =============================
// Adapters
// =============================

// ---- Mock Notifier ----

type SentMessage struct {
	ChatID string
	Text   string
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentMessage
	Fail bool
}

var _ adapter.Notifier = (*MockNotifier)(nil)

// Send records only deliveries that would have reached Telegram.
func (m *MockNotifier) Send(ctx context.Context, chatID, text string) bool {
	if ctx.Err() != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{ChatID: chatID, Text: text})
	return !m.Fail
}

func (m *MockNotifier) To(chatID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

// ---- Mock SubmissionSink ----

type MockSink struct {
	mu        sync.Mutex
	Submitted []model.LeadSubmission
	OK        bool
	// OnSubmit runs inside Submit, e.g. to emulate the sink's own operator message.
	OnSubmit func(ctx context.Context, lead model.LeadSubmission)
}

var _ adapter.SubmissionSink = (*MockSink)(nil)

func (m *MockSink) Submit(ctx context.Context, lead model.LeadSubmission) bool {
	m.mu.Lock()
	m.Submitted = append(m.Submitted, lead)
	hook := m.OnSubmit
	m.mu.Unlock()
	if hook != nil {
		hook(ctx, lead)
	}
	return m.OK
}
