// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"telegram-lead-bot/internal/config"
	"telegram-lead-bot/internal/domain/ports/adapter"
	"telegram-lead-bot/internal/domain/ports/repository"
	"telegram-lead-bot/internal/infra/adapters/sheet"
	tele "telegram-lead-bot/internal/infra/adapters/telegram"
	pg "telegram-lead-bot/internal/infra/db/postgres"
	"telegram-lead-bot/internal/infra/db/sqlite"
	"telegram-lead-bot/internal/infra/i18n"
	"telegram-lead-bot/internal/infra/logging"
	"telegram-lead-bot/internal/infra/memstate"
	"telegram-lead-bot/internal/infra/metrics"
	red "telegram-lead-bot/internal/infra/redis"
	"telegram-lead-bot/internal/infra/sched"
	"telegram-lead-bot/internal/infra/web"
	"telegram-lead-bot/internal/usecase"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.StringP("config", "c", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, no PII redaction, token optional")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		logging.Global.Fatal().Err(err).Msg("config")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("lead bot stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.State.Backend)

	texts, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		return fmt.Errorf("translations: %w", err)
	}

	// ---- Telegram ----
	var notifier adapter.Notifier
	if cfg.Bot.Token == "" {
		logger.Warn().Msg("bot.token empty, outgoing messages are only logged")
		notifier = tele.NewNoopNotifier(logger)
	} else {
		bot, err := tele.NewBotNotifier(&cfg.Bot, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		logger.Info().Str("username", bot.Username()).Msg("telegram bot authorized")
		notifier = bot
	}

	// ---- Sheet ----
	sink, err := sheet.NewAppsScriptSink(cfg.Sheet, notifier, cfg.Bot.OperatorChatID, texts, logger)
	if err != nil {
		return fmt.Errorf("sheet: %w", err)
	}

	// ---- State store ----
	states, locker, purger, closeStore, err := openStateStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ---- Use case ----
	conv := usecase.NewConversationUseCase(states, notifier, sink, texts, cfg.Bot.OperatorChatID, logger).
		WithDevLogging(cfg.Runtime.Dev)
	if locker != nil {
		conv = conv.WithLocker(locker, cfg.State.LockTTL)
	}

	// ---- Stale state sweeper ----
	if purger != nil {
		sweeper, err := sched.NewStaleStateSweeper(cfg.State.SweepInterval, cfg.State.TTL, purger, logger)
		if err != nil {
			return fmt.Errorf("sweeper: %w", err)
		}
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("sweeper: %w", err)
		}
		defer func() {
			if err := sweeper.Stop(); err != nil {
				logger.Warn().Err(err).Msg("sweeper shutdown")
			}
		}()
	}

	// ---- HTTP ----
	srv := web.NewServer(conv, notifier, texts, cfg.Server, cfg.Bot.OperatorChatID, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("webhook", cfg.Server.WebhookPath).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.TurnTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// openStateStore returns the configured store, the optional turn locker, and
// a purger when the backend does not expire records on its own.
func openStateStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (
	repository.StateRepository, repository.TurnLocker, repository.StalePurger, func(), error,
) {
	noop := func() {}

	switch cfg.State.Backend {
	case config.BackendRedis:
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, nil, noop, fmt.Errorf("redis: %w", err)
		}
		closeFn := func() { _ = client.Close() }
		var locker repository.TurnLocker
		if cfg.State.Lock {
			locker = red.NewLocker(client)
		}
		logger.Info().Str("backend", "redis").Dur("ttl", cfg.State.TTL).Bool("lock", cfg.State.Lock).Msg("state store ready")
		return red.NewStateRepo(client, cfg.State.TTL), locker, nil, closeFn, nil

	case config.BackendPostgres:
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, nil, noop, fmt.Errorf("postgres: %w", err)
		}
		repo := pg.NewStateRepo(pool, cfg.State.TTL)
		logger.Info().Str("backend", "postgres").Msg("state store ready")
		return repo, nil, repo, pool.Close, nil

	case config.BackendSQLite:
		repo, err := sqlite.Open(cfg.SQLite.Path, cfg.State.TTL)
		if err != nil {
			return nil, nil, nil, noop, fmt.Errorf("sqlite: %w", err)
		}
		logger.Info().Str("backend", "sqlite").Str("path", cfg.SQLite.Path).Msg("state store ready")
		return repo, nil, repo, func() { _ = repo.Close() }, nil

	case config.BackendMemory:
		repo := memstate.NewStateRepo(cfg.State.TTL)
		logger.Warn().Str("backend", "memory").Msg("state store is in-process, conversations are lost on restart")
		return repo, nil, repo, noop, nil
	}
	return nil, nil, nil, noop, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
}
