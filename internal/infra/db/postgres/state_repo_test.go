//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"telegram-lead-bot/internal/domain/model"
)

func TestStateRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()

	t.Run("missing row reads as no record", func(t *testing.T) {
		cleanup(t)
		repo := NewStateRepo(testPool, time.Hour)
		st, err := repo.Get(ctx, "1")
		if err != nil || st != nil {
			t.Fatalf("expected (nil, nil), got (%+v, %v)", st, err)
		}
	})

	t.Run("upsert keeps a single row", func(t *testing.T) {
		cleanup(t)
		repo := NewStateRepo(testPool, time.Hour)
		if err := repo.Set(ctx, model.NewAwaitingName("42")); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := repo.Set(ctx, model.NewAwaitingEmail("42", "Alice")); err != nil {
			t.Fatalf("set: %v", err)
		}
		var n int
		if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM lead_conversations`).Scan(&n); err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 row, got %d", n)
		}
		st, err := repo.Get(ctx, "42")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if st.Step != model.StepAwaitingEmail || st.Name != "Alice" {
			t.Errorf("unexpected state: %+v", st)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		cleanup(t)
		repo := NewStateRepo(testPool, time.Hour)
		_ = repo.Set(ctx, model.NewAwaitingName("7"))
		for i := 0; i < 2; i++ {
			if err := repo.Delete(ctx, "7"); err != nil {
				t.Fatalf("delete #%d: %v", i+1, err)
			}
		}
		if st, _ := repo.Get(ctx, "7"); st != nil {
			t.Fatalf("expected no record, got %+v", st)
		}
	})

	t.Run("expired rows are hidden and purged", func(t *testing.T) {
		cleanup(t)
		repo := NewStateRepo(testPool, time.Hour)
		past := time.Now().Add(-2 * time.Hour)
		repo.now = func() time.Time { return past }
		_ = repo.Set(ctx, model.NewAwaitingName("old"))
		repo.now = time.Now
		_ = repo.Set(ctx, model.NewAwaitingName("fresh"))

		if st, _ := repo.Get(ctx, "old"); st != nil {
			t.Fatalf("expected expired row to be hidden, got %+v", st)
		}
		n, err := repo.PurgeStale(ctx, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("purge: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 purged row, got %d", n)
		}
		if st, _ := repo.Get(ctx, "fresh"); st == nil {
			t.Fatal("fresh row must survive the purge")
		}
	})
}
