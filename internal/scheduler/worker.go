package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/connections"
	"github.com/Keiracom/Agency-OS-sub001/platform/config"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TouchRunner executes due touches and voice retries. Satisfied by
// *dispatch.Runner.
type TouchRunner interface {
	HandleDueTouch(ctx context.Context, campaignID, leadID uuid.UUID, touchIndex int) error
	HandleVoiceRetry(ctx context.Context, campaignID, leadID uuid.UUID, attemptNumber int) error
}

// HealthRefresher runs the fleet-wide seat refresh. Satisfied by
// *seats.Monitor.
type HealthRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// StaleSweeper runs one reaper pass. Satisfied by *connections.Reaper.
type StaleSweeper interface {
	Sweep(ctx context.Context, now time.Time) (connections.SweepStats, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	touches TouchRunner
	health  HealthRefresher
	sweeper StaleSweeper
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, touches TouchRunner, health HealthRefresher, sweeper StaleSweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		touches: touches,
		health:  health,
		sweeper: sweeper,
		log:     log,
	}

	mux.HandleFunc(TaskTouchDue, w.handleTouchDue)
	mux.HandleFunc(TaskVoiceRetry, w.handleVoiceRetry)
	mux.HandleFunc(TaskHealthRefresh, w.handleHealthRefresh)
	mux.HandleFunc(TaskReaperSweep, w.handleReaperSweep)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleTouchDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseTouchDuePayload(task)
	if err != nil {
		return err
	}

	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return err
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	return w.touches.HandleDueTouch(ctx, campaignID, leadID, payload.TouchIndex)
}

func (w *Worker) handleVoiceRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseVoiceRetryPayload(task)
	if err != nil {
		return err
	}

	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return err
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	return w.touches.HandleVoiceRetry(ctx, campaignID, leadID, payload.AttemptNumber)
}

func (w *Worker) handleHealthRefresh(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()
	refreshed, err := w.health.RefreshAll(ctx)
	if err != nil {
		return err
	}
	w.log.SweepResult("seat_health_refresh", refreshed, 0, float64(time.Since(start).Milliseconds()))
	return nil
}

func (w *Worker) handleReaperSweep(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()
	stats, err := w.sweeper.Sweep(ctx, time.Now())
	if err != nil {
		return err
	}
	w.log.SweepResult("connection_reaper", stats.IgnoredCount+stats.WithdrawnCount, stats.FailedCount, float64(time.Since(start).Milliseconds()))
	return nil
}
