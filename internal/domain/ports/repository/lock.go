package repository

import (
	"context"
	"time"
)

// TurnLocker serializes turns for a single chat. TryLock fails fast with
// domain.ErrTurnInProgress when the key is already held.
type TurnLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
