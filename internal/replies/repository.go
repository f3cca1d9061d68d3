package replies

import (
	"context"
	"errors"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrLeadNotFound = errors.New("lead not found")

// Repository is the pgx-backed Store. Lead status and thread outcome live in
// separate tables but are always written through here.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetLeadState(ctx context.Context, leadID, tenantID uuid.UUID) (LeadState, error) {
	var rawStatus, rawOutcome string
	err := r.pool.QueryRow(ctx, `
		SELECT l.status, COALESCE(t.outcome, 'ongoing')
		FROM leads l
		LEFT JOIN threads t ON t.lead_id = l.id AND t.tenant_id = l.tenant_id
		WHERE l.id = $1 AND l.tenant_id = $2
	`, leadID, tenantID).Scan(&rawStatus, &rawOutcome)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadState{}, ErrLeadNotFound
	}
	if err != nil {
		return LeadState{}, err
	}

	status, ok := domain.ParseLeadStatus(rawStatus)
	if !ok {
		return LeadState{}, errors.New("lead has unknown status: " + rawStatus)
	}
	outcome, ok := domain.ParseThreadOutcome(rawOutcome)
	if !ok {
		return LeadState{}, errors.New("thread has unknown outcome: " + rawOutcome)
	}

	return LeadState{Status: status, ThreadOutcome: outcome}, nil
}

func (r *Repository) UpdateLeadStatus(ctx context.Context, leadID, tenantID uuid.UUID, status domain.LeadStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, leadID, tenantID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (r *Repository) UpdateThreadOutcome(ctx context.Context, leadID, tenantID uuid.UUID, outcome domain.ThreadOutcome) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO threads (lead_id, tenant_id, outcome)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id, tenant_id) DO UPDATE
		SET outcome = EXCLUDED.outcome, updated_at = now()
	`, leadID, tenantID, string(outcome))
	return err
}

func (r *Repository) RecordReply(ctx context.Context, leadID, tenantID uuid.UUID, at time.Time, substantive bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET reply_count = reply_count + 1,
		       last_reply_at = $3,
		       last_substantive_reply_at = CASE WHEN $4 THEN $3 ELSE last_substantive_reply_at END,
		       updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, leadID, tenantID, at, substantive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (r *Repository) AppendObjection(ctx context.Context, leadID, tenantID uuid.UUID, objection string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_objections (id, lead_id, tenant_id, objection, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), leadID, tenantID, objection, at)
	return err
}

func (r *Repository) RecordRejectionReason(ctx context.Context, leadID, tenantID uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET rejection_reason = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, leadID, tenantID, reason)
	return err
}

func (r *Repository) FlagFollowUp(ctx context.Context, leadID, tenantID uuid.UUID, kind string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET follow_up_flag = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, leadID, tenantID, kind)
	return err
}

// ListObjections returns a lead's objection history, oldest first.
func (r *Repository) ListObjections(ctx context.Context, leadID, tenantID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT objection FROM lead_objections
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY recorded_at ASC
	`, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	objections := make([]string, 0)
	for rows.Next() {
		var objection string
		if err := rows.Scan(&objection); err != nil {
			return nil, err
		}
		objections = append(objections, objection)
	}
	return objections, rows.Err()
}
