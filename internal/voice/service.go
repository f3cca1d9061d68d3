package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
)

// AttemptStore is the persistence surface the service needs. Satisfied by
// *Repository.
type AttemptStore interface {
	ListAttempts(ctx context.Context, leadID, campaignID uuid.UUID) ([]Attempt, error)
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// RetryEnqueuer schedules a future dial. Satisfied by the scheduler client,
// which deduplicates on (lead, campaign, attempt) so a duplicate outcome
// report never produces a second scheduled retry.
type RetryEnqueuer interface {
	EnqueueVoiceRetry(ctx context.Context, leadID, campaignID uuid.UUID, attemptNumber int, runAt time.Time) error
}

// Service records completed dial outcomes and schedules retries.
type Service struct {
	store   AttemptStore
	enqueue RetryEnqueuer
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store AttemptStore, enqueue RetryEnqueuer, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		enqueue: enqueue,
		log:     log,
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Test helper.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// HandleOutcome records the completed attempt and, when the outcome
// qualifies, schedules the next one.
func (s *Service) HandleOutcome(ctx context.Context, leadID, campaignID uuid.UUID, rawOutcome string) (Decision, error) {
	outcome, err := ParseOutcome(rawOutcome)
	if err != nil {
		return Decision{}, err
	}

	now := s.now()

	history, err := s.store.ListAttempts(ctx, leadID, campaignID)
	if err != nil {
		return Decision{}, fmt.Errorf("load attempt history: %w", err)
	}

	completed := Attempt{
		LeadID:     leadID,
		CampaignID: campaignID,
		Number:     len(history) + 1,
		Outcome:    outcome,
		At:         now,
	}
	if err := s.store.RecordAttempt(ctx, completed); err != nil {
		return Decision{}, fmt.Errorf("record attempt: %w", err)
	}
	history = append(history, completed)

	decision := Schedule(history, outcome, now)
	if !decision.Scheduled {
		return decision, nil
	}

	if err := s.enqueue.EnqueueVoiceRetry(ctx, leadID, campaignID, decision.AttemptNumber, *decision.RetryAt); err != nil {
		// The attempt is recorded; the retry rides the next duplicate
		// trigger or manual replay rather than failing the batch.
		s.log.Warn("voice retry enqueue failed", "lead_id", leadID, "campaign_id", campaignID, "error", err)
	}

	return decision, nil
}
