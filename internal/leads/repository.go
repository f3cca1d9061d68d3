// Package leads persists leads and exposes the read models other contexts
// need: condition state for planning and contact data for dispatch.
package leads

import (
	"context"
	"errors"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/leads/domain"
	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// Lead is the full lead row.
type Lead struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	FirstName      string
	LastName       string
	Company        string
	Industry       string
	Email          string
	Phone          string
	ProfileURL     string
	MailingAddress string
	Status         domain.LeadStatus
	ALSScore       int
	ReplyCount     int
	LastReplyAt    *time.Time

	// LastSubstantiveReplyAt is set only for replies where the prospect
	// actually engaged. Out-of-office and auto replies bump ReplyCount but
	// leave this nil, so no_reply conditions keep passing.
	LastSubstantiveReplyAt *time.Time
	CreatedAt              time.Time
}

// ContactInfo is the slice of lead data skip rules are evaluated against.
type ContactInfo struct {
	Email          string
	Phone          string
	ProfileURL     string
	MailingAddress string
}

// HasDataFor reports whether the contact data required by a skip rule is
// present. An empty rule always passes.
func (c ContactInfo) HasDataFor(rule sequence.SkipRule) bool {
	switch rule {
	case sequence.SkipMissingPhone:
		return c.Phone != ""
	case sequence.SkipMissingProfileURL:
		return c.ProfileURL != ""
	case sequence.SkipMissingAddress:
		return c.MailingAddress != ""
	default:
		return true
	}
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, leadID, tenantID uuid.UUID) (Lead, error) {
	var lead Lead
	var rawStatus string
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, first_name, last_name, company, industry,
		       COALESCE(email, ''), COALESCE(phone, ''), COALESCE(profile_url, ''), COALESCE(mailing_address, ''),
		       status, als_score, reply_count, last_reply_at, last_substantive_reply_at, created_at
		FROM leads
		WHERE id = $1 AND tenant_id = $2
	`, leadID, tenantID).Scan(
		&lead.ID, &lead.TenantID, &lead.FirstName, &lead.LastName, &lead.Company, &lead.Industry,
		&lead.Email, &lead.Phone, &lead.ProfileURL, &lead.MailingAddress,
		&rawStatus, &lead.ALSScore, &lead.ReplyCount, &lead.LastReplyAt, &lead.LastSubstantiveReplyAt, &lead.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}

	status, ok := domain.ParseLeadStatus(rawStatus)
	if !ok {
		return Lead{}, errors.New("lead has unknown status: " + rawStatus)
	}
	lead.Status = status
	return lead, nil
}

// ConditionState reads the state touch conditions are evaluated against,
// immediately before each dispatch.
func (r *Repository) ConditionState(ctx context.Context, leadID, tenantID uuid.UUID) (sequence.ConditionState, error) {
	var state sequence.ConditionState
	err := r.pool.QueryRow(ctx, `
		SELECT last_substantive_reply_at IS NOT NULL, als_score FROM leads
		WHERE id = $1 AND tenant_id = $2
	`, leadID, tenantID).Scan(&state.HasReplied, &state.ALSScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return sequence.ConditionState{}, ErrNotFound
	}
	if err != nil {
		return sequence.ConditionState{}, err
	}
	return state, nil
}

// ContactInfo reads the contact fields skip rules check.
func (r *Repository) ContactInfo(ctx context.Context, leadID, tenantID uuid.UUID) (ContactInfo, error) {
	var info ContactInfo
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(email, ''), COALESCE(phone, ''), COALESCE(profile_url, ''), COALESCE(mailing_address, '')
		FROM leads
		WHERE id = $1 AND tenant_id = $2
	`, leadID, tenantID).Scan(&info.Email, &info.Phone, &info.ProfileURL, &info.MailingAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return ContactInfo{}, ErrNotFound
	}
	return info, err
}

// ListBySegment returns scored leads in one industry segment, best score
// first, capped at limit. Terminal and already-sequenced leads are excluded.
func (r *Repository) ListBySegment(ctx context.Context, tenantID uuid.UUID, industry string, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, first_name, last_name, company, industry,
		       COALESCE(email, ''), COALESCE(phone, ''), COALESCE(profile_url, ''), COALESCE(mailing_address, ''),
		       status, als_score, reply_count, last_reply_at, last_substantive_reply_at, created_at
		FROM leads
		WHERE tenant_id = $1 AND industry = $2 AND status IN ('enriched', 'scored')
		ORDER BY als_score DESC, created_at ASC
		LIMIT $3
	`, tenantID, industry, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		var lead Lead
		var rawStatus string
		if err := rows.Scan(
			&lead.ID, &lead.TenantID, &lead.FirstName, &lead.LastName, &lead.Company, &lead.Industry,
			&lead.Email, &lead.Phone, &lead.ProfileURL, &lead.MailingAddress,
			&rawStatus, &lead.ALSScore, &lead.ReplyCount, &lead.LastReplyAt, &lead.LastSubstantiveReplyAt, &lead.CreatedAt,
		); err != nil {
			return nil, err
		}
		status, ok := domain.ParseLeadStatus(rawStatus)
		if !ok {
			return nil, errors.New("lead has unknown status: " + rawStatus)
		}
		lead.Status = status
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// MarkInSequence moves a batch of leads to in_sequence during campaign
// activation. Terminal leads are left untouched.
func (r *Repository) MarkInSequence(ctx context.Context, tenantID uuid.UUID, leadIDs []uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = 'in_sequence', updated_at = now()
		WHERE tenant_id = $1 AND id = ANY($2) AND status NOT IN ('converted', 'unsubscribed', 'bounced')
	`, tenantID, leadIDs)
	return err
}
