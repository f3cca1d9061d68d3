package scheduler

import (
	"context"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/platform/config"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"
)

// SweepDispatcher enqueues the periodic maintenance tasks on their
// cadences: the daily seat health refresh and the stale-connection reaper
// sweep. Actual work happens in the worker; this loop only ticks.
type SweepDispatcher struct {
	client *Client
	cfg    config.SweepConfig
	log    *logger.Logger
}

func NewSweepDispatcher(client *Client, cfg config.SweepConfig, log *logger.Logger) *SweepDispatcher {
	return &SweepDispatcher{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

func (d *SweepDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	healthEvery := d.cfg.GetHealthRefreshInterval()
	if healthEvery <= 0 {
		healthEvery = 24 * time.Hour
	}
	reaperEvery := d.cfg.GetReaperSweepInterval()
	if reaperEvery <= 0 {
		reaperEvery = 24 * time.Hour
	}

	healthTicker := time.NewTicker(healthEvery)
	defer healthTicker.Stop()
	reaperTicker := time.NewTicker(reaperEvery)
	defer reaperTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-healthTicker.C:
			if err := d.client.EnqueueHealthRefresh(ctx); err != nil {
				d.log.Warn("health refresh enqueue failed", "error", err)
			}
		case <-reaperTicker.C:
			if err := d.client.EnqueueReaperSweep(ctx); err != nil {
				d.log.Warn("reaper sweep enqueue failed", "error", err)
			}
		}
	}
}
