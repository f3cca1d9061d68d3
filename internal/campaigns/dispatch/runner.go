package dispatch

import (
	"context"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/campaigns"
	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
)

// retryAfterSendFailure is how long a touch waits after a dispatcher error
// before the same attempt runs again.
const retryAfterSendFailure = time.Hour

// SequenceStore is the sequence persistence the runner drives.
type SequenceStore interface {
	GetLeadSequence(ctx context.Context, campaignID, leadID uuid.UUID) (campaigns.LeadSequence, error)
	AdvanceTouch(ctx context.Context, campaignID, leadID uuid.UUID) error
	StopSequence(ctx context.Context, leadID, tenantID uuid.UUID, reason string) error
}

// Runner executes one due touch: gate check, channel send, advance, and
// scheduling of the following touch.
type Runner struct {
	store    SequenceStore
	leads    LeadReader
	gate     *Gate
	registry Registry
	enqueuer campaigns.TouchEnqueuer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func NewRunner(store SequenceStore, leadReader LeadReader, gate *Gate, registry Registry, enqueuer campaigns.TouchEnqueuer, bus events.Bus, log *logger.Logger) *Runner {
	return &Runner{
		store:    store,
		leads:    leadReader,
		gate:     gate,
		registry: registry,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the runner's clock. Used by tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// HandleDueTouch processes one due touch task. Duplicate deliveries are
// no-ops: a task whose touch index the sequence has already moved past does
// nothing. Failures that can resolve themselves re-enqueue; nothing here is
// fatal to the worker.
func (r *Runner) HandleDueTouch(ctx context.Context, campaignID, leadID uuid.UUID, touchIndex int) error {
	ls, err := r.store.GetLeadSequence(ctx, campaignID, leadID)
	if err != nil {
		return err
	}
	if ls.Stopped {
		return nil
	}
	if ls.NextTouch != touchIndex {
		// Stale or duplicate task delivery.
		return nil
	}

	touch, ok := ls.CurrentTouch()
	if !ok {
		return r.complete(ctx, ls)
	}

	verdict, err := r.gate.Authorize(ctx, campaignID, leadID, touch)
	if err != nil {
		return err
	}

	switch verdict.Kind {
	case VerdictStop:
		if err := r.store.StopSequence(ctx, leadID, ls.TenantID, verdict.Reason); err != nil {
			return err
		}
		r.bus.Publish(ctx, events.SequenceStopped{
			BaseEvent:  events.NewBaseEvent(),
			CampaignID: campaignID,
			LeadID:     leadID,
			TenantID:   ls.TenantID,
			Reason:     verdict.Reason,
		})
		return nil

	case VerdictSkip:
		r.log.Info("touch skipped", "lead_id", leadID, "channel", touch.Channel, "reason", verdict.Reason)
		return r.advance(ctx, ls, touch)

	case VerdictDefer:
		r.bus.Publish(ctx, events.TouchDeferred{
			BaseEvent:  events.NewBaseEvent(),
			CampaignID: campaignID,
			LeadID:     leadID,
			TenantID:   ls.TenantID,
			Channel:    string(touch.Channel),
			RetryAt:    verdict.RetryAt,
			Reason:     verdict.Reason,
		})
		return r.enqueuer.EnqueueTouch(ctx, campaignID, leadID, touchIndex, verdict.RetryAt)

	case VerdictSend:
		return r.send(ctx, ls, touch, verdict)

	default:
		r.log.Error("unknown gate verdict", "verdict", verdict.Kind)
		return nil
	}
}

func (r *Runner) send(ctx context.Context, ls campaigns.LeadSequence, touch sequence.Touch, verdict Verdict) error {
	dispatcher, ok := r.registry.For(touch.Channel)
	if !ok {
		// No dispatcher configured for the channel: treat like missing
		// data, not a failure.
		r.log.Warn("no dispatcher for channel, skipping touch", "channel", touch.Channel)
		return r.advance(ctx, ls, touch)
	}

	lead, err := r.leads.GetByID(ctx, ls.LeadID, ls.TenantID)
	if err != nil {
		return err
	}

	outcome, err := dispatcher.Dispatch(ctx, Request{
		Channel:      touch.Channel,
		Lead:         lead,
		Seat:         verdict.Seat,
		ContentKey:   touch.ContentKey,
		ScheduledFor: r.now(),
	})
	if err != nil {
		// Quota was consumed but the send failed; retry the same touch
		// later rather than losing it.
		r.log.DispatchEvent(string(touch.Channel), ls.LeadID.String(), "error", false)
		r.log.Error("dispatch failed", "lead_id", ls.LeadID, "channel", touch.Channel, "error", err)
		return r.enqueuer.EnqueueTouch(ctx, ls.CampaignID, ls.LeadID, ls.NextTouch, r.now().Add(retryAfterSendFailure))
	}

	r.log.DispatchEvent(string(touch.Channel), ls.LeadID.String(), outcome.Detail, outcome.Delivered)
	r.bus.Publish(ctx, events.TouchDispatched{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: ls.CampaignID,
		LeadID:     ls.LeadID,
		TenantID:   ls.TenantID,
		Channel:    string(touch.Channel),
		ContentKey: touch.ContentKey,
		Day:        touch.Day,
	})
	return r.advance(ctx, ls, touch)
}

// advance moves past the current touch and enqueues the next one at its day
// offset, or completes the sequence when none remain.
func (r *Runner) advance(ctx context.Context, ls campaigns.LeadSequence, current sequence.Touch) error {
	if err := r.store.AdvanceTouch(ctx, ls.CampaignID, ls.LeadID); err != nil {
		return err
	}

	nextIndex := ls.NextTouch + 1
	if nextIndex >= len(ls.Sequence.Touches) {
		ls.NextTouch = nextIndex
		return r.complete(ctx, ls)
	}

	next := ls.Sequence.Touches[nextIndex]
	runAt := r.now()
	if gap := next.Day - current.Day; gap > 0 {
		runAt = runAt.AddDate(0, 0, gap)
	}
	return r.enqueuer.EnqueueTouch(ctx, ls.CampaignID, ls.LeadID, nextIndex, runAt)
}

// HandleVoiceRetry redials a lead when a scheduled retry comes due. The
// lead's terminal status and suppression are re-checked; a missing voice
// dispatcher makes the retry a logged no-op.
func (r *Runner) HandleVoiceRetry(ctx context.Context, campaignID, leadID uuid.UUID, attemptNumber int) error {
	ls, err := r.store.GetLeadSequence(ctx, campaignID, leadID)
	if err != nil {
		return err
	}
	if ls.Stopped {
		return nil
	}

	lead, err := r.leads.GetByID(ctx, leadID, ls.TenantID)
	if err != nil {
		return err
	}
	if lead.Status.IsTerminal() {
		return nil
	}

	dispatcher, ok := r.registry.For(sequence.ChannelVoice)
	if !ok {
		r.log.Warn("voice retry due but no voice dispatcher configured", "lead_id", leadID)
		return nil
	}

	outcome, err := dispatcher.Dispatch(ctx, Request{
		Channel:      sequence.ChannelVoice,
		Lead:         lead,
		ContentKey:   "voice_discovery",
		ScheduledFor: r.now(),
	})
	if err != nil {
		r.log.DispatchEvent("voice", leadID.String(), "retry_error", false)
		return err
	}
	r.log.DispatchEvent("voice", leadID.String(), outcome.Detail, outcome.Delivered)
	r.log.Info("voice retry dialed", "lead_id", leadID, "campaign_id", campaignID, "attempt", attemptNumber)
	return nil
}

func (r *Runner) complete(ctx context.Context, ls campaigns.LeadSequence) error {
	if err := r.store.StopSequence(ctx, ls.LeadID, ls.TenantID, "completed"); err != nil {
		return err
	}
	r.bus.Publish(ctx, events.SequenceStopped{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: ls.CampaignID,
		LeadID:     ls.LeadID,
		TenantID:   ls.TenantID,
		Reason:     "completed",
	})
	return nil
}
