package voice

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists dial attempts. The retry ceiling is derived from
// attempt history, not tracked as separate state.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListAttempts returns all prior attempts for the (lead, campaign) tuple,
// oldest first.
func (r *Repository) ListAttempts(ctx context.Context, leadID, campaignID uuid.UUID) ([]Attempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id, campaign_id, attempt_number, outcome, attempted_at
		FROM call_attempts
		WHERE lead_id = $1 AND campaign_id = $2
		ORDER BY attempt_number ASC
	`, leadID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]Attempt, 0)
	for rows.Next() {
		var attempt Attempt
		var rawOutcome string
		if err := rows.Scan(&attempt.LeadID, &attempt.CampaignID, &attempt.Number, &rawOutcome, &attempt.At); err != nil {
			return nil, err
		}
		outcome, err := ParseOutcome(rawOutcome)
		if err != nil {
			return nil, err
		}
		attempt.Outcome = outcome
		attempts = append(attempts, attempt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return attempts, nil
}

// RecordAttempt stores a completed dial. Inserting the same attempt number
// twice is a no-op so duplicate dispatcher callbacks stay idempotent.
func (r *Repository) RecordAttempt(ctx context.Context, attempt Attempt) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_attempts (lead_id, campaign_id, attempt_number, outcome, attempted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lead_id, campaign_id, attempt_number) DO NOTHING
	`, attempt.LeadID, attempt.CampaignID, attempt.Number, string(attempt.Outcome), attempt.At)
	return err
}
