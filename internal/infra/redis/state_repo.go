package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-lead-bot/internal/domain"
	"telegram-lead-bot/internal/domain/model"
	"telegram-lead-bot/internal/domain/ports/repository"
	"telegram-lead-bot/internal/infra/metrics"

	"github.com/go-redis/redis/v8"
)

var _ repository.StateRepository = (*StateRepo)(nil)

const backendName = "redis"

// StateRepo keeps one JSON-encoded conversation per chat under
// lead_state:<chatID>. Abandoned conversations expire after ttl.
type StateRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewStateRepo(client RedisClient, ttl time.Duration) *StateRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StateRepo{client: client, ttl: ttl}
}

func (s *StateRepo) stateKey(chatID string) string {
	return "lead_state:" + chatID
}

func (s *StateRepo) Get(ctx context.Context, chatID string) (*model.ConversationState, error) {
	data, err := s.client.Get(ctx, s.stateKey(chatID))
	if errors.Is(err, redis.Nil) {
		metrics.IncStateOp(backendName, "get", "miss")
		return nil, nil
	}
	if err != nil {
		metrics.IncStateOp(backendName, "get", "error")
		return nil, fmt.Errorf("redis get state: %w", err)
	}

	var state model.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		metrics.IncStateOp(backendName, "get", "error")
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if state.ChatID == "" {
		state.ChatID = chatID
	}
	metrics.IncStateOp(backendName, "get", "hit")
	return &state, nil
}

func (s *StateRepo) Set(ctx context.Context, state *model.ConversationState) error {
	if state == nil || state.ChatID == "" {
		return domain.ErrInvalidArgument
	}
	if state.Step == model.StepNone {
		return s.Delete(ctx, state.ChatID)
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.stateKey(state.ChatID), data, s.ttl); err != nil {
		metrics.IncStateOp(backendName, "set", "error")
		return fmt.Errorf("redis set state: %w", err)
	}
	metrics.IncStateOp(backendName, "set", "ok")
	return nil
}

func (s *StateRepo) Delete(ctx context.Context, chatID string) error {
	if err := s.client.Del(ctx, s.stateKey(chatID)); err != nil {
		metrics.IncStateOp(backendName, "delete", "error")
		return fmt.Errorf("redis delete state: %w", err)
	}
	metrics.IncStateOp(backendName, "delete", "ok")
	return nil
}
