package repository

import (
	"context"
	"time"

	"telegram-lead-bot/internal/domain/model"
)

// StateRepository is the port for per-chat conversation state.
//
// Get returns (nil, nil) when no record exists. Set is an upsert; a state
// with model.StepNone is stored as a deletion. Delete is idempotent.
type StateRepository interface {
	Get(ctx context.Context, chatID string) (*model.ConversationState, error)
	Set(ctx context.Context, state *model.ConversationState) error
	Delete(ctx context.Context, chatID string) error
}

// StalePurger removes records untouched since before. Implemented by the
// SQL backends, which have no native expiry.
type StalePurger interface {
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}
