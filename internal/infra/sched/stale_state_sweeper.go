package sched

import (
	"context"
	"errors"
	"time"

	"telegram-lead-bot/internal/domain/ports/repository"
	"telegram-lead-bot/internal/infra/metrics"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// StaleStateSweeper removes conversation records that nobody finished
// within ttl. Redis expires keys itself; SQL backends need this job.
type StaleStateSweeper struct {
	interval time.Duration
	ttl      time.Duration
	purger   repository.StalePurger
	now      func() time.Time
	log      *zerolog.Logger

	scheduler gocron.Scheduler
}

func NewStaleStateSweeper(interval, ttl time.Duration, purger repository.StalePurger, logger *zerolog.Logger) (*StaleStateSweeper, error) {
	if purger == nil {
		return nil, errors.New("sweeper needs a purger")
	}
	if ttl <= 0 {
		return nil, errors.New("sweeper needs a positive ttl")
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	swLog := logger.With().Str("component", "StaleStateSweeper").Logger()
	return &StaleStateSweeper{
		interval: interval,
		ttl:      ttl,
		purger:   purger,
		now:      time.Now,
		log:      &swLog,
	}, nil
}

// Start registers the sweep job and starts the scheduler. ctx bounds every run.
func (w *StaleStateSweeper) Start(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			_, _ = w.sweepOnce(runCtx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return err
	}
	w.scheduler = s
	s.Start()
	w.log.Info().Dur("interval", w.interval).Dur("ttl", w.ttl).Msg("Starting stale state sweeper")
	return nil
}

func (w *StaleStateSweeper) Stop() error {
	if w.scheduler == nil {
		return nil
	}
	w.log.Info().Msg("Stopping stale state sweeper")
	return w.scheduler.Shutdown()
}

func (w *StaleStateSweeper) sweepOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.ttl)
	n, err := w.purger.PurgeStale(ctx, cutoff)
	if err != nil {
		metrics.IncSweepRun("failed")
		w.log.Error().Err(err).Msg("stale state sweep failed")
		return 0, err
	}
	metrics.IncSweepRun("completed")
	metrics.AddStatesPurged(n)
	if n > 0 {
		w.log.Info().Int64("count", n).Time("cutoff", cutoff).Msg("stale conversations purged")
	}
	return n, nil
}
