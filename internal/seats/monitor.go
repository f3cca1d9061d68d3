package seats

import (
	"context"
	"fmt"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Accept-rate thresholds on the 7-day window.
const (
	acceptRateCritical = 0.20
	acceptRateWarning  = 0.30

	criticalOverrideLimit = 10
	warningOverrideLimit  = 15
)

// Pending-backlog thresholds. These only raise alerts, they never change
// capacity.
const (
	pendingWarning  = 50
	pendingCritical = 80
)

// zeroSendWindow is how long an active seat with quota may go without a
// single send before the restriction heuristic fires.
const zeroSendWindow = 3 * 24 * time.Hour

// refreshParallelism bounds concurrent per-seat refreshes in a full sweep.
const refreshParallelism = 8

// Store is the persistence surface the monitor needs. Satisfied by
// *Repository.
type Store interface {
	GetSeat(ctx context.Context, seatID uuid.UUID) (Seat, error)
	WindowMetrics(ctx context.Context, seatID uuid.UUID, now time.Time) (WindowMetrics, error)
	SetOverride(ctx context.Context, seatID uuid.UUID, limit int, reason OverrideReason) error
	ClearHealthOverride(ctx context.Context, seatID uuid.UUID) error
	MarkRestricted(ctx context.Context, seatID uuid.UUID) error
	ResetRestriction(ctx context.Context, seatID uuid.UUID) error
	ListRefreshableSeatIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Monitor computes rolling health metrics for seats and keeps their daily
// capacity in line with what the metrics justify.
type Monitor struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// NewMonitor creates a health monitor. The clock is injectable for tests.
func NewMonitor(store Store, bus events.Bus, log *logger.Logger) *Monitor {
	return &Monitor{
		store: store,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// WithClock overrides the monitor's clock. Test helper.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Refresh recomputes one seat's health: trailing accept rates, pending
// backlog, capacity override, and the zero-send restriction heuristic.
func (m *Monitor) Refresh(ctx context.Context, seatID uuid.UUID) (HealthReport, error) {
	now := m.now()

	seat, err := m.store.GetSeat(ctx, seatID)
	if err != nil {
		return HealthReport{}, fmt.Errorf("load seat %s: %w", seatID, err)
	}

	metrics, err := m.store.WindowMetrics(ctx, seatID, now)
	if err != nil {
		return HealthReport{}, fmt.Errorf("seat %s window metrics: %w", seatID, err)
	}

	report := HealthReport{
		SeatID:        seatID,
		AcceptRate7d:  acceptRate(metrics.Accepted7d, metrics.Requested7d),
		AcceptRate30d: acceptRate(metrics.Accepted30d, metrics.Requested30d),
		PendingCount:  metrics.PendingCount,
		RefreshedAt:   now,
	}

	seat, report.Alerts, err = m.applyAcceptRatePolicy(ctx, seat, report.AcceptRate7d)
	if err != nil {
		return HealthReport{}, err
	}

	report.Alerts = append(report.Alerts, pendingAlerts(metrics.PendingCount)...)
	report.Alerts = append(report.Alerts, m.zeroSendAlerts(seat, now)...)
	report.DailyLimit = DailyLimit(seat, now)

	for _, alert := range report.Alerts {
		m.bus.Publish(ctx, events.SeatHealthDegraded{
			BaseEvent: events.NewBaseEvent(),
			SeatID:    seat.ID,
			TenantID:  seat.TenantID,
			Severity:  string(alert.Severity),
			Reason:    alert.Code,
		})
	}

	return report, nil
}

// applyAcceptRatePolicy sets or clears the health-driven capacity override.
// A restriction-driven override is never cleared here.
func (m *Monitor) applyAcceptRatePolicy(ctx context.Context, seat Seat, rate7d *float64) (Seat, []Alert, error) {
	if rate7d == nil {
		// No requests in the window: unknown is not unhealthy.
		return seat, nil, nil
	}

	var alerts []Alert
	switch {
	case *rate7d < acceptRateCritical:
		alerts = append(alerts, Alert{
			Severity: SeverityCritical,
			Code:     "accept_rate_critical",
			Message:  fmt.Sprintf("7-day accept rate %.0f%% below %.0f%%", *rate7d*100, acceptRateCritical*100),
		})
		if err := m.store.SetOverride(ctx, seat.ID, criticalOverrideLimit, OverrideHealth); err != nil {
			return seat, nil, fmt.Errorf("set critical override: %w", err)
		}
		limit := criticalOverrideLimit
		seat.DailyLimitOverride = &limit
		seat.OverrideReason = OverrideHealth

	case *rate7d < acceptRateWarning:
		alerts = append(alerts, Alert{
			Severity: SeverityWarning,
			Code:     "accept_rate_warning",
			Message:  fmt.Sprintf("7-day accept rate %.0f%% below %.0f%%", *rate7d*100, acceptRateWarning*100),
		})
		if err := m.store.SetOverride(ctx, seat.ID, warningOverrideLimit, OverrideHealth); err != nil {
			return seat, nil, fmt.Errorf("set warning override: %w", err)
		}
		limit := warningOverrideLimit
		seat.DailyLimitOverride = &limit
		seat.OverrideReason = OverrideHealth

	default:
		if seat.OverrideReason == OverrideHealth {
			if err := m.store.ClearHealthOverride(ctx, seat.ID); err != nil {
				return seat, nil, fmt.Errorf("clear health override: %w", err)
			}
			seat.DailyLimitOverride = nil
			seat.OverrideReason = OverrideNone
		}
	}

	return seat, alerts, nil
}

func pendingAlerts(pending int) []Alert {
	switch {
	case pending >= pendingCritical:
		return []Alert{{
			Severity: SeverityCritical,
			Code:     "pending_backlog_critical",
			Message:  fmt.Sprintf("%d connection requests pending", pending),
		}}
	case pending >= pendingWarning:
		return []Alert{{
			Severity: SeverityWarning,
			Code:     "pending_backlog_warning",
			Message:  fmt.Sprintf("%d connection requests pending", pending),
		}}
	default:
		return nil
	}
}

// zeroSendAlerts is a heuristic safety net: an active seat with quota that
// has sent nothing for three days may be silently restricted by the
// provider. It only raises an alert; restricted status is set exclusively
// by an explicit external signal via ApplyRestriction.
func (m *Monitor) zeroSendAlerts(seat Seat, now time.Time) []Alert {
	if seat.Status != StatusActive || DailyLimit(seat, now) == 0 {
		return nil
	}
	if seat.LastSentAt != nil && now.Sub(*seat.LastSentAt) < zeroSendWindow {
		return nil
	}
	if seat.LastSentAt == nil && (seat.ActivatedAt == nil || now.Sub(*seat.ActivatedAt) < zeroSendWindow) {
		return nil
	}

	return []Alert{{
		Severity: SeverityWarning,
		Code:     "possible_restriction",
		Message:  "seat has quota but no sends in 3+ days",
	}}
}

// RefreshAll refreshes every refreshable seat in parallel. Individual seat
// failures are logged and skipped; the sweep always completes.
func (m *Monitor) RefreshAll(ctx context.Context) (int, error) {
	seatIDs, err := m.store.ListRefreshableSeatIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list seats: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(refreshParallelism)

	for _, seatID := range seatIDs {
		id := seatID
		group.Go(func() error {
			if _, err := m.Refresh(groupCtx, id); err != nil {
				m.log.Warn("seat refresh failed", "seat_id", id, "error", err)
			}
			return nil
		})
	}

	_ = group.Wait()
	return len(seatIDs), nil
}

// ApplyRestriction handles an explicit provider restriction signal:
// status becomes restricted and capacity drops to zero until a manual
// reset.
func (m *Monitor) ApplyRestriction(ctx context.Context, seatID uuid.UUID) error {
	seat, err := m.store.GetSeat(ctx, seatID)
	if err != nil {
		return fmt.Errorf("load seat %s: %w", seatID, err)
	}

	if err := m.store.MarkRestricted(ctx, seatID); err != nil {
		return fmt.Errorf("mark restricted: %w", err)
	}

	m.bus.Publish(ctx, events.SeatRestricted{
		BaseEvent: events.NewBaseEvent(),
		SeatID:    seatID,
		TenantID:  seat.TenantID,
	})
	return nil
}

// ResetRestriction is the manual recovery path for a restricted seat.
func (m *Monitor) ResetRestriction(ctx context.Context, seatID uuid.UUID) error {
	return m.store.ResetRestriction(ctx, seatID)
}

// acceptRate computes accepted/requested, nil when the denominator is zero.
func acceptRate(accepted, requested int) *float64 {
	if requested == 0 {
		return nil
	}
	rate := float64(accepted) / float64(requested)
	return &rate
}
