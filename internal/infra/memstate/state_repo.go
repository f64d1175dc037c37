// Package memstate is an in-process conversation store for development and
// single-instance runs. State does not survive a restart.
package memstate

import (
	"context"
	"sync"
	"time"

	"telegram-lead-bot/internal/domain"
	"telegram-lead-bot/internal/domain/model"
	"telegram-lead-bot/internal/domain/ports/repository"
)

var (
	_ repository.StateRepository = (*StateRepo)(nil)
	_ repository.StalePurger     = (*StateRepo)(nil)
)

// StateRepo reads records older than ttl as absent, like the SQL stores.
// A zero ttl keeps records until they are deleted or purged.
type StateRepo struct {
	mu    sync.RWMutex
	store map[string]model.ConversationState
	ttl   time.Duration
	now   func() time.Time
}

func NewStateRepo(ttl time.Duration) *StateRepo {
	return &StateRepo{
		store: make(map[string]model.ConversationState),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *StateRepo) Get(ctx context.Context, chatID string) (*model.ConversationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.store[chatID]
	if !ok || r.expired(st) {
		return nil, nil
	}
	cp := st
	return &cp, nil
}

func (r *StateRepo) Set(ctx context.Context, state *model.ConversationState) error {
	if state == nil || state.ChatID == "" {
		return domain.ErrInvalidArgument
	}
	if state.Step == model.StepNone {
		return r.Delete(ctx, state.ChatID)
	}
	cp := *state
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = r.now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[cp.ChatID] = cp
	return nil
}

func (r *StateRepo) Delete(ctx context.Context, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.store, chatID)
	return nil
}

func (r *StateRepo) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, st := range r.store {
		if st.UpdatedAt.Before(before) {
			delete(r.store, id)
			n++
		}
	}
	return n, nil
}

func (r *StateRepo) expired(st model.ConversationState) bool {
	return r.ttl > 0 && !st.UpdatedAt.After(r.now().Add(-r.ttl))
}

// Len reports how many conversations are in flight.
func (r *StateRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}
