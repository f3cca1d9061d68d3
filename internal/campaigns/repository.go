package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("campaign not found")
	ErrSequenceNotFound = errors.New("lead sequence not found")
)

// Repository persists campaigns and per-lead sequences. Touch lists are
// stored as JSONB and marshalled through the typed sequence structs at this
// boundary only.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, c Campaign) (Campaign, error) {
	profile, err := json.Marshal(c.Profile)
	if err != nil {
		return Campaign{}, err
	}
	channels := make([]string, len(c.Channels))
	for i, ch := range c.Channels {
		channels[i] = string(ch)
	}

	c.ID = uuid.New()
	c.Status = StatusDraft
	err = r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (id, tenant_id, name, status, profile, channels, aggressive, lead_budget)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, c.ID, c.TenantID, c.Name, string(c.Status), profile, channels, c.Aggressive, c.LeadBudget).Scan(&c.CreatedAt)
	if err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, campaignID, tenantID uuid.UUID) (Campaign, error) {
	var c Campaign
	var rawStatus string
	var profile []byte
	var channels []string
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, status, profile, channels, aggressive, lead_budget, created_at, activated_at
		FROM campaigns
		WHERE id = $1 AND tenant_id = $2
	`, campaignID, tenantID).Scan(
		&c.ID, &c.TenantID, &c.Name, &rawStatus, &profile, &channels,
		&c.Aggressive, &c.LeadBudget, &c.CreatedAt, &c.ActivatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	if err != nil {
		return Campaign{}, err
	}

	status, ok := ParseStatus(rawStatus)
	if !ok {
		return Campaign{}, errors.New("campaign has unknown status: " + rawStatus)
	}
	c.Status = status

	if err := json.Unmarshal(profile, &c.Profile); err != nil {
		return Campaign{}, err
	}
	c.Channels = make([]sequence.Channel, 0, len(channels))
	for _, raw := range channels {
		channel, ok := sequence.ParseChannel(raw)
		if !ok {
			return Campaign{}, errors.New("campaign has unknown channel: " + raw)
		}
		c.Channels = append(c.Channels, channel)
	}
	return c, nil
}

// MarkActive flips a draft campaign to active exactly once.
func (r *Repository) MarkActive(ctx context.Context, campaignID, tenantID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = 'active', activated_at = now(), updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'draft'
	`, campaignID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SaveLeadSequence(ctx context.Context, ls LeadSequence) error {
	seq, err := json.Marshal(ls.Sequence)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lead_sequences (campaign_id, lead_id, tenant_id, sequence, next_touch, stopped, stop_reason, planned_at)
		VALUES ($1, $2, $3, $4, 0, false, '', now())
		ON CONFLICT (campaign_id, lead_id) DO UPDATE
		SET sequence = EXCLUDED.sequence, next_touch = 0, stopped = false, stop_reason = '', planned_at = now()
	`, ls.CampaignID, ls.LeadID, ls.TenantID, seq)
	return err
}

func (r *Repository) GetLeadSequence(ctx context.Context, campaignID, leadID uuid.UUID) (LeadSequence, error) {
	var ls LeadSequence
	var seq []byte
	err := r.pool.QueryRow(ctx, `
		SELECT campaign_id, lead_id, tenant_id, sequence, next_touch, stopped, stop_reason, delay_until, planned_at
		FROM lead_sequences
		WHERE campaign_id = $1 AND lead_id = $2
	`, campaignID, leadID).Scan(
		&ls.CampaignID, &ls.LeadID, &ls.TenantID, &seq,
		&ls.NextTouch, &ls.Stopped, &ls.StopReason, &ls.DelayUntil, &ls.PlannedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadSequence{}, ErrSequenceNotFound
	}
	if err != nil {
		return LeadSequence{}, err
	}
	if err := json.Unmarshal(seq, &ls.Sequence); err != nil {
		return LeadSequence{}, err
	}
	return ls, nil
}

// AdvanceTouch moves the cursor past a dispatched (or skipped) touch and
// clears any out-of-office delay.
func (r *Repository) AdvanceTouch(ctx context.Context, campaignID, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_sequences SET next_touch = next_touch + 1, delay_until = NULL, updated_at = now()
		WHERE campaign_id = $1 AND lead_id = $2
	`, campaignID, leadID)
	return err
}

// StopSequence halts every active sequence for the lead across campaigns.
// Implements the replies.SequenceControl contract.
func (r *Repository) StopSequence(ctx context.Context, leadID, tenantID uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_sequences SET stopped = true, stop_reason = $3, updated_at = now()
		WHERE lead_id = $1 AND tenant_id = $2 AND NOT stopped
	`, leadID, tenantID, reason)
	return err
}

// DelayNextTouch pushes the lead's next touch out by delay from now.
func (r *Repository) DelayNextTouch(ctx context.Context, leadID, tenantID uuid.UUID, delay time.Duration) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_sequences SET delay_until = now() + $3, updated_at = now()
		WHERE lead_id = $1 AND tenant_id = $2 AND NOT stopped
	`, leadID, tenantID, delay)
	return err
}
