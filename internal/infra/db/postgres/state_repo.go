package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-lead-bot/internal/domain"
	"telegram-lead-bot/internal/domain/model"
	"telegram-lead-bot/internal/domain/ports/repository"
	"telegram-lead-bot/internal/infra/metrics"
)

var (
	_ repository.StateRepository = (*StateRepo)(nil)
	_ repository.StalePurger     = (*StateRepo)(nil)
)

const backendName = "postgres"

type executor interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// StateRepo stores conversations in lead_conversations, one row per chat.
// Rows older than ttl read as absent until the sweeper removes them.
type StateRepo struct {
	db  executor
	ttl time.Duration
	now func() time.Time
}

func NewStateRepo(pool *pgxpool.Pool, ttl time.Duration) *StateRepo {
	return &StateRepo{db: pool, ttl: ttl, now: time.Now}
}

func (r *StateRepo) Get(ctx context.Context, chatID string) (*model.ConversationState, error) {
	const q = `
SELECT step, name, updated_at
FROM lead_conversations
WHERE chat_id = $1 AND updated_at > $2`

	st := model.ConversationState{ChatID: chatID}
	var step string
	err := r.db.QueryRow(ctx, q, chatID, r.cutoff()).Scan(&step, &st.Name, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.IncStateOp(backendName, "get", "miss")
		return nil, nil
	}
	if err != nil {
		metrics.IncStateOp(backendName, "get", "error")
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	st.Step = model.ConversationStep(step)
	metrics.IncStateOp(backendName, "get", "hit")
	return &st, nil
}

func (r *StateRepo) Set(ctx context.Context, state *model.ConversationState) error {
	if state == nil || state.ChatID == "" {
		return domain.ErrInvalidArgument
	}
	if state.Step == model.StepNone {
		return r.Delete(ctx, state.ChatID)
	}
	const q = `
INSERT INTO lead_conversations (chat_id, step, name, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (chat_id) DO UPDATE SET
  step = EXCLUDED.step,
  name = EXCLUDED.name,
  updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, q, state.ChatID, string(state.Step), state.Name, r.now().UTC()); err != nil {
		metrics.IncStateOp(backendName, "set", "error")
		return fmt.Errorf("upsert state: %w", err)
	}
	metrics.IncStateOp(backendName, "set", "ok")
	return nil
}

func (r *StateRepo) Delete(ctx context.Context, chatID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM lead_conversations WHERE chat_id = $1`, chatID); err != nil {
		metrics.IncStateOp(backendName, "delete", "error")
		return fmt.Errorf("delete state: %w", err)
	}
	metrics.IncStateOp(backendName, "delete", "ok")
	return nil
}

func (r *StateRepo) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM lead_conversations WHERE updated_at <= $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge stale states: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *StateRepo) cutoff() time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	return r.now().Add(-r.ttl).UTC()
}
