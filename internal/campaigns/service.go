package campaigns

import (
	"context"
	"errors"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	"github.com/Keiracom/Agency-OS-sub001/internal/leads"
	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
	"github.com/Keiracom/Agency-OS-sub001/platform/apperr"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
)

// TouchEnqueuer schedules a touch task for a future run time.
type TouchEnqueuer interface {
	EnqueueTouch(ctx context.Context, campaignID, leadID uuid.UUID, touchIndex int, runAt time.Time) error
}

// LeadSource is the slice of the leads repository activation needs.
type LeadSource interface {
	ListBySegment(ctx context.Context, tenantID uuid.UUID, industry string, limit int) ([]leads.Lead, error)
	MarkInSequence(ctx context.Context, tenantID uuid.UUID, leadIDs []uuid.UUID) error
}

// Store is the campaign persistence the service drives.
type Store interface {
	GetByID(ctx context.Context, campaignID, tenantID uuid.UUID) (Campaign, error)
	MarkActive(ctx context.Context, campaignID, tenantID uuid.UUID) error
	SaveLeadSequence(ctx context.Context, ls LeadSequence) error
	StopSequence(ctx context.Context, leadID, tenantID uuid.UUID, reason string) error
}

// Service activates campaigns: it validates and splits the targeting
// profile, plans one sequence per lead, and enqueues each lead's first touch.
type Service struct {
	store    Store
	leads    LeadSource
	enqueuer TouchEnqueuer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func NewService(store Store, leadSource LeadSource, enqueuer TouchEnqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		leads:    leadSource,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Activate plans and starts a draft campaign. Planning is per lead and per
// segment; each lead's first touch is enqueued at its day offset from
// activation. A lead whose planned sequence is empty is a valid no-op.
func (s *Service) Activate(ctx context.Context, campaignID, tenantID uuid.UUID) (int, error) {
	const op = "campaigns.Service.Activate"

	campaign, err := s.store.GetByID(ctx, campaignID, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, apperr.NotFound("campaign not found").WithOp(op)
		}
		return 0, apperr.Wrap(apperr.KindInternal, "failed to load campaign", err).WithOp(op)
	}
	if campaign.Status != StatusDraft {
		return 0, apperr.Conflict("campaign is not in draft").WithOp(op)
	}

	profiles, err := sequence.SplitSegments(campaign.Profile)
	if err != nil {
		return 0, err
	}

	activated := 0
	for _, profile := range profiles {
		count, err := s.activateSegment(ctx, campaign, profile)
		if err != nil {
			return 0, err
		}
		activated += count
	}

	if err := s.store.MarkActive(ctx, campaignID, tenantID); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to mark campaign active", err).WithOp(op)
	}

	s.bus.Publish(ctx, events.CampaignActivated{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: campaignID,
		TenantID:   tenantID,
		LeadCount:  activated,
	})
	return activated, nil
}

func (s *Service) activateSegment(ctx context.Context, campaign Campaign, profile sequence.TargetProfile) (int, error) {
	const op = "campaigns.Service.activateSegment"

	budget := segmentBudget(campaign.LeadBudget, profile)
	segmentLeads, err := s.leads.ListBySegment(ctx, campaign.TenantID, profile.Industry, budget)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to list segment leads", err).WithOp(op)
	}
	if len(segmentLeads) == 0 {
		return 0, nil
	}

	planned := sequence.Plan(profile, campaign.Channels, campaign.Aggressive)
	now := s.now()

	leadIDs := make([]uuid.UUID, 0, len(segmentLeads))
	for _, lead := range segmentLeads {
		if err := s.store.SaveLeadSequence(ctx, LeadSequence{
			CampaignID: campaign.ID,
			LeadID:     lead.ID,
			TenantID:   campaign.TenantID,
			Sequence:   planned,
		}); err != nil {
			return 0, apperr.Wrap(apperr.KindInternal, "failed to save lead sequence", err).WithOp(op)
		}
		leadIDs = append(leadIDs, lead.ID)

		// An empty sequence is valid; there is just nothing to enqueue.
		if len(planned.Touches) == 0 {
			continue
		}
		// Day 1 is the activation day itself.
		runAt := touchRunAt(now, 1, planned.Touches[0])
		if err := s.enqueuer.EnqueueTouch(ctx, campaign.ID, lead.ID, 0, runAt); err != nil {
			return 0, apperr.Wrap(apperr.KindInternal, "failed to enqueue first touch", err).WithOp(op)
		}
	}

	if err := s.leads.MarkInSequence(ctx, campaign.TenantID, leadIDs); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to mark leads in sequence", err).WithOp(op)
	}
	return len(leadIDs), nil
}

// segmentBudget is the segment's proportional share of the campaign's lead
// budget.
func segmentBudget(total int, profile sequence.TargetProfile) int {
	allocation := 100
	if len(profile.Segments) == 1 {
		allocation = profile.Segments[0].Allocation
	}
	budget := total * allocation / 100
	if budget < 1 {
		budget = 1
	}
	return budget
}

// touchRunAt schedules a touch relative to a base time using template day
// offsets: day N runs N-afterDay days after the base.
func touchRunAt(base time.Time, afterDay int, touch sequence.Touch) time.Time {
	gap := touch.Day - afterDay
	if gap <= 0 {
		return base
	}
	return base.AddDate(0, 0, gap)
}
