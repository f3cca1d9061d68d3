package connections

import (
	"context"
	"fmt"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Store is the persistence surface the reaper needs. Satisfied by
// *Repository.
type Store interface {
	ListStale(ctx context.Context, olderThan time.Time) ([]Request, error)
	MarkIgnored(ctx context.Context, requestID uuid.UUID, at time.Time) error
	MarkWithdrawn(ctx context.Context, requestID uuid.UUID, at time.Time) error
}

// Reaper walks long-pending connection requests and force-transitions them
// to terminal states: ignored at 14 days, withdrawn at 30.
type Reaper struct {
	store      Store
	provider   Withdrawer
	limiter    *rate.Limiter
	perSeatCap int
	log        *logger.Logger
}

// NewReaper creates a reaper. perSeatCap bounds provider-side withdrawals
// per seat per sweep; callsPerSecond paces the provider API globally.
func NewReaper(store Store, provider Withdrawer, perSeatCap int, callsPerSecond float64, log *logger.Logger) *Reaper {
	if perSeatCap < 1 {
		perSeatCap = 1
	}
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	return &Reaper{
		store:      store,
		provider:   provider,
		limiter:    rate.NewLimiter(rate.Limit(callsPerSecond), 1),
		perSeatCap: perSeatCap,
		log:        log,
	}
}

// Sweep makes one pass over stale requests. Eligibility is keyed off
// requested_at age, never current status, so an already-ignored request
// still reaches withdrawn at 30 days. Individual provider failures are
// logged and rolled to the next sweep; the pass always completes.
func (r *Reaper) Sweep(ctx context.Context, now time.Time) (SweepStats, error) {
	var stats SweepStats

	stale, err := r.store.ListStale(ctx, now.Add(-ignoreAfter))
	if err != nil {
		return stats, fmt.Errorf("list stale requests: %w", err)
	}

	withdrawnPerSeat := make(map[uuid.UUID]int)

	for _, req := range stale {
		age := now.Sub(req.RequestedAt)

		switch {
		case age >= withdrawAfter:
			r.withdraw(ctx, req, now, withdrawnPerSeat, &stats)

		case req.Status == StatusPending:
			if err := r.store.MarkIgnored(ctx, req.ID, now); err != nil {
				r.log.Warn("mark ignored failed", "request_id", req.ID, "error", err)
				stats.FailedCount++
				continue
			}
			stats.IgnoredCount++

		default:
			// Already ignored and under 30 days: nothing to do this pass.
		}
	}

	return stats, nil
}

func (r *Reaper) withdraw(ctx context.Context, req Request, now time.Time, withdrawnPerSeat map[uuid.UUID]int, stats *SweepStats) {
	// Nothing to retract on the provider side.
	if r.provider == nil || req.ProviderRequestID == nil || *req.ProviderRequestID == "" {
		if err := r.store.MarkWithdrawn(ctx, req.ID, now); err != nil {
			r.log.Warn("mark withdrawn failed", "request_id", req.ID, "error", err)
			stats.FailedCount++
			return
		}
		stats.WithdrawnCount++
		return
	}

	// Oldest-first cap per seat; the remainder rolls to the next sweep.
	if withdrawnPerSeat[req.SeatID] >= r.perSeatCap {
		return
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return
	}

	if err := r.provider.Withdraw(ctx, req.SeatID.String(), *req.ProviderRequestID); err != nil {
		r.log.Warn("provider withdrawal failed", "request_id", req.ID, "seat_id", req.SeatID, "error", err)
		stats.FailedCount++
		return
	}

	withdrawnPerSeat[req.SeatID]++

	if err := r.store.MarkWithdrawn(ctx, req.ID, now); err != nil {
		r.log.Warn("mark withdrawn failed", "request_id", req.ID, "error", err)
		stats.FailedCount++
		return
	}
	stats.WithdrawnCount++
}
