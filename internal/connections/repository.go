package connections

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("connection request not found")

// Repository persists connection requests.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, req Request) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO connection_requests (id, seat_id, tenant_id, lead_id, provider_request_id, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, req.ID, req.SeatID, req.TenantID, req.LeadID, req.ProviderRequestID, string(req.Status), req.RequestedAt)
	return err
}

// ListStale returns requests whose requested_at age is at least minAge and
// whose status still allows reaping. Eligibility is keyed off age, not
// current status: an already-ignored request remains eligible for the
// 30-day withdrawal. Ordered oldest first so the per-seat withdrawal cap
// retires the longest-pending requests before the rest.
func (r *Repository) ListStale(ctx context.Context, olderThan time.Time) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, seat_id, tenant_id, lead_id, provider_request_id, status, requested_at, responded_at
		FROM connection_requests
		WHERE requested_at <= $1
		  AND status NOT IN ('accepted', 'declined', 'withdrawn')
		ORDER BY requested_at ASC
	`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]Request, 0)
	for rows.Next() {
		var req Request
		var rawStatus string
		if err := rows.Scan(&req.ID, &req.SeatID, &req.TenantID, &req.LeadID, &req.ProviderRequestID, &rawStatus, &req.RequestedAt, &req.RespondedAt); err != nil {
			return nil, err
		}
		status, ok := ParseStatus(rawStatus)
		if !ok {
			return nil, errors.New("connection request has unknown status: " + rawStatus)
		}
		req.Status = status
		requests = append(requests, req)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return requests, nil
}

// MarkIgnored transitions a still-pending request to ignored. Guarding on
// status in the statement keeps re-runs idempotent.
func (r *Repository) MarkIgnored(ctx context.Context, requestID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE connection_requests
		SET status = 'ignored', responded_at = $2
		WHERE id = $1 AND status = 'pending'
	`, requestID, at)
	return err
}

// MarkWithdrawn transitions a pending or ignored request to withdrawn.
func (r *Repository) MarkWithdrawn(ctx context.Context, requestID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE connection_requests
		SET status = 'withdrawn', responded_at = COALESCE(responded_at, $2)
		WHERE id = $1 AND status IN ('pending', 'ignored')
	`, requestID, at)
	return err
}

// MarkResponded records a provider response (accepted or declined) for a
// request that has not already reached a terminal state.
func (r *Repository) MarkResponded(ctx context.Context, requestID uuid.UUID, status Status, at time.Time) error {
	if status != StatusAccepted && status != StatusDeclined {
		return errors.New("responded status must be accepted or declined")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE connection_requests
		SET status = $2, responded_at = $3
		WHERE id = $1 AND status IN ('pending', 'ignored')
	`, requestID, string(status), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
