package seats

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("seat not found")
	ErrQuotaExhausted = errors.New("seat daily quota exhausted")
)

// Repository persists seats and their per-day usage counters.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetSeat(ctx context.Context, seatID uuid.UUID) (Seat, error) {
	var seat Seat
	var status string
	var reason *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, channel, status, activated_at, daily_limit_override, override_reason, last_sent_at
		FROM seats
		WHERE id = $1
	`, seatID).Scan(&seat.ID, &seat.TenantID, &seat.Channel, &status, &seat.ActivatedAt, &seat.DailyLimitOverride, &reason, &seat.LastSentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Seat{}, ErrNotFound
	}
	if err != nil {
		return Seat{}, err
	}

	parsed, ok := ParseStatus(status)
	if !ok {
		return Seat{}, errors.New("seat has unknown status: " + status)
	}
	seat.Status = parsed
	if reason != nil {
		seat.OverrideReason = OverrideReason(*reason)
	}
	return seat, nil
}

// WindowMetrics counts connection requests in the trailing 7 and 30 day
// windows plus the current pending backlog, in one round trip.
func (r *Repository) WindowMetrics(ctx context.Context, seatID uuid.UUID, now time.Time) (WindowMetrics, error) {
	var metrics WindowMetrics
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE requested_at >= $2),
			COUNT(*) FILTER (WHERE requested_at >= $2 AND status = 'accepted'),
			COUNT(*) FILTER (WHERE requested_at >= $3),
			COUNT(*) FILTER (WHERE requested_at >= $3 AND status = 'accepted'),
			COUNT(*) FILTER (WHERE status = 'pending')
		FROM connection_requests
		WHERE seat_id = $1
	`, seatID, now.AddDate(0, 0, -7), now.AddDate(0, 0, -30)).Scan(
		&metrics.Requested7d, &metrics.Accepted7d,
		&metrics.Requested30d, &metrics.Accepted30d,
		&metrics.PendingCount,
	)
	if err != nil {
		return WindowMetrics{}, err
	}
	return metrics, nil
}

func (r *Repository) SetOverride(ctx context.Context, seatID uuid.UUID, limit int, reason OverrideReason) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE seats
		SET daily_limit_override = $2, override_reason = $3, updated_at = now()
		WHERE id = $1
	`, seatID, limit, string(reason))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearHealthOverride removes a health-driven override only. A
// restriction-driven override is untouchable here.
func (r *Repository) ClearHealthOverride(ctx context.Context, seatID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE seats
		SET daily_limit_override = NULL, override_reason = '', updated_at = now()
		WHERE id = $1 AND override_reason = 'health'
	`, seatID)
	return err
}

func (r *Repository) MarkRestricted(ctx context.Context, seatID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE seats
		SET status = 'restricted', daily_limit_override = 0, override_reason = 'restriction', updated_at = now()
		WHERE id = $1
	`, seatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetRestriction is the manual recovery path: the seat re-enters warmup
// from the top of the ramp.
func (r *Repository) ResetRestriction(ctx context.Context, seatID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE seats
		SET status = 'warmup', daily_limit_override = NULL, override_reason = '', activated_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'restricted'
	`, seatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListRefreshableSeatIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM seats
		WHERE status IN ('warmup', 'active')
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PickSeat chooses the least-recently-used usable seat on a channel for a
// tenant. Restricted and unactivated seats are never picked.
func (r *Repository) PickSeat(ctx context.Context, tenantID uuid.UUID, channel string) (Seat, error) {
	var seatID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM seats
		WHERE tenant_id = $1 AND channel = $2 AND status IN ('warmup', 'active')
		ORDER BY last_sent_at ASC NULLS FIRST
		LIMIT 1
	`, tenantID, channel).Scan(&seatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Seat{}, ErrNotFound
	}
	if err != nil {
		return Seat{}, err
	}
	return r.GetSeat(ctx, seatID)
}

// ConsumeQuota atomically takes one unit of today's capacity. The
// check-and-increment is a single upsert so concurrent workers can never
// allocate past the limit. Returns ErrQuotaExhausted when the day is full.
func (r *Repository) ConsumeQuota(ctx context.Context, seatID uuid.UUID, day time.Time, limit int) error {
	if limit <= 0 {
		return ErrQuotaExhausted
	}

	var used int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO seat_usage (seat_id, day, used)
		VALUES ($1, $2::date, 1)
		ON CONFLICT (seat_id, day) DO UPDATE
		SET used = seat_usage.used + 1
		WHERE seat_usage.used < $3
		RETURNING used
	`, seatID, day, limit).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrQuotaExhausted
	}
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE seats SET last_sent_at = now(), updated_at = now() WHERE id = $1
	`, seatID)
	return err
}
