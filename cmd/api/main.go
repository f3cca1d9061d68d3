package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/campaigns"
	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	apphttp "github.com/Keiracom/Agency-OS-sub001/internal/http"
	"github.com/Keiracom/Agency-OS-sub001/internal/http/router"
	"github.com/Keiracom/Agency-OS-sub001/internal/leads"
	"github.com/Keiracom/Agency-OS-sub001/internal/replies"
	"github.com/Keiracom/Agency-OS-sub001/internal/scheduler"
	"github.com/Keiracom/Agency-OS-sub001/internal/seats"
	"github.com/Keiracom/Agency-OS-sub001/internal/voice"
	"github.com/Keiracom/Agency-OS-sub001/migrations"
	"github.com/Keiracom/Agency-OS-sub001/platform/config"
	"github.com/Keiracom/Agency-OS-sub001/platform/db"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"
	"github.com/Keiracom/Agency-OS-sub001/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Task client for deferred touch dispatch and voice retries
	taskClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer taskClient.Close()

	// Global do-not-contact suppression set
	suppressor, err := replies.NewRedisSuppressor(cfg)
	if err != nil {
		log.Error("failed to initialize suppression set", "error", err)
		panic("failed to initialize suppression set: " + err.Error())
	}

	// Reply intent classifier; nil when GEMINI_API_KEY is not configured,
	// in which case replies degrade to the conservative default intent.
	var classifier replies.Classifier
	geminiClassifier, err := replies.NewGeminiClassifier(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize reply classifier", "error", err)
		panic("failed to initialize reply classifier: " + err.Error())
	}
	if geminiClassifier != nil {
		classifier = geminiClassifier
	} else {
		log.Warn("GEMINI_API_KEY not configured; reply classification disabled")
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	leadRepo := leads.NewRepository(pool)

	seatsModule := seats.NewModule(pool, eventBus, log)
	campaignsModule := campaigns.NewModule(pool, leadRepo, taskClient, eventBus, val, log)
	repliesModule := replies.NewModule(pool, classifier, suppressor, campaignsModule.Repository(), eventBus, val, log)
	voiceModule := voice.NewModule(pool, taskClient, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			campaignsModule,
			repliesModule,
			seatsModule,
			voiceModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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

	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
