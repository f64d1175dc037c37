// Package sqlite is a single-file conversation store for deployments
// without Redis or Postgres.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"telegram-lead-bot/internal/domain"
	"telegram-lead-bot/internal/domain/model"
	"telegram-lead-bot/internal/domain/ports/repository"
	"telegram-lead-bot/internal/infra/metrics"
)

//go:embed schema.sql
var ddl string

var (
	_ repository.StateRepository = (*StateRepo)(nil)
	_ repository.StalePurger     = (*StateRepo)(nil)
)

const backendName = "sqlite"

type StateRepo struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, ttl time.Duration) (*StateRepo, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &StateRepo{db: db, ttl: ttl, now: time.Now}, nil
}

func (r *StateRepo) Close() error { return r.db.Close() }

func (r *StateRepo) Get(ctx context.Context, chatID string) (*model.ConversationState, error) {
	const q = `SELECT step, name, updated_at FROM lead_conversations WHERE chat_id = ? AND updated_at > ?`

	st := model.ConversationState{ChatID: chatID}
	var (
		step      string
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, q, chatID, r.cutoff()).Scan(&step, &st.Name, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.IncStateOp(backendName, "get", "miss")
		return nil, nil
	}
	if err != nil {
		metrics.IncStateOp(backendName, "get", "error")
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	st.Step = model.ConversationStep(step)
	st.UpdatedAt = time.Unix(0, updatedAt).UTC()
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
VALUES (?, ?, ?, ?)
ON CONFLICT(chat_id) DO UPDATE SET
  step = excluded.step,
  name = excluded.name,
  updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, q, state.ChatID, string(state.Step), state.Name, r.now().UnixNano()); err != nil {
		metrics.IncStateOp(backendName, "set", "error")
		return fmt.Errorf("upsert state: %w", err)
	}
	metrics.IncStateOp(backendName, "set", "ok")
	return nil
}

func (r *StateRepo) Delete(ctx context.Context, chatID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lead_conversations WHERE chat_id = ?`, chatID); err != nil {
		metrics.IncStateOp(backendName, "delete", "error")
		return fmt.Errorf("delete state: %w", err)
	}
	metrics.IncStateOp(backendName, "delete", "ok")
	return nil
}

func (r *StateRepo) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lead_conversations WHERE updated_at <= ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge stale states: %w", err)
	}
	return res.RowsAffected()
}

func (r *StateRepo) cutoff() int64 {
	if r.ttl <= 0 {
		return 0
	}
	return r.now().Add(-r.ttl).UnixNano()
}
