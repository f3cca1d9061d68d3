package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/campaigns"
	"github.com/Keiracom/Agency-OS-sub001/internal/campaigns/dispatch"
	"github.com/Keiracom/Agency-OS-sub001/internal/connections"
	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	"github.com/Keiracom/Agency-OS-sub001/internal/leads"
	"github.com/Keiracom/Agency-OS-sub001/internal/replies"
	"github.com/Keiracom/Agency-OS-sub001/internal/scheduler"
	"github.com/Keiracom/Agency-OS-sub001/internal/seats"
	"github.com/Keiracom/Agency-OS-sub001/platform/config"
	"github.com/Keiracom/Agency-OS-sub001/platform/db"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	taskClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer taskClient.Close()

	suppressor, err := replies.NewRedisSuppressor(cfg)
	if err != nil {
		log.Error("failed to initialize suppression set", "error", err)
		panic("failed to initialize suppression set: " + err.Error())
	}

	// Repositories shared by the worker-side services.
	leadRepo := leads.NewRepository(pool)
	seatRepo := seats.New(pool)
	campaignRepo := campaigns.NewRepository(pool)

	// Touch dispatch: gate plus per-channel dispatchers. Only email has a
	// built-in implementation; the other channels stay unconfigured until an
	// outbound provider is wired in.
	registry := dispatch.Registry{
		Email: dispatch.NewEmailDispatcher(cfg),
	}
	gate := dispatch.NewGate(campaignRepo, leadRepo, seatRepo, suppressor, log)
	runner := dispatch.NewRunner(campaignRepo, leadRepo, gate, registry, taskClient, eventBus, log)

	// Seat health refresh.
	monitor := seats.NewMonitor(seatRepo, eventBus, log)

	// Stale connection-request reaping.
	var withdrawer connections.Withdrawer
	if provider := connections.NewProviderClient(cfg, log); provider != nil {
		withdrawer = provider
	} else {
		log.Warn("connection provider not configured; stale requests are withdrawn locally only")
	}
	reaper := connections.NewReaper(connections.New(pool), withdrawer, cfg.GetReaperWithdrawalsPerSeat(), cfg.GetReaperCallsPerSecond(), log)

	sweeps := scheduler.NewSweepDispatcher(taskClient, cfg, log)
	go sweeps.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, runner, monitor, reaper, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
