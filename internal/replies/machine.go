package replies

import (
	"context"
	"fmt"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	"github.com/Keiracom/Agency-OS-sub001/internal/leads/domain"
	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
	"github.com/Keiracom/Agency-OS-sub001/platform/apperr"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
)

// outOfOfficeDelay is how far the next planned touch moves when the prospect
// is away.
const outOfOfficeDelay = 14 * 24 * time.Hour

// IncomingMessage is one inbound reply as delivered by the channel webhook.
type IncomingMessage struct {
	LeadID     uuid.UUID
	TenantID   uuid.UUID
	Channel    sequence.Channel
	Address    string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// LeadState is the slice of lead and thread state the machine reads before
// deciding a transition.
type LeadState struct {
	Status        domain.LeadStatus
	ThreadOutcome domain.ThreadOutcome
}

// Result reports what one reply did to the lead.
type Result struct {
	Intent       Intent
	Confidence   float64
	StatusAfter  domain.LeadStatus
	OutcomeAfter domain.ThreadOutcome
	Actions      []string
}

// Store persists lead and thread state. The machine is the only writer of
// Status and ThreadOutcome.
type Store interface {
	GetLeadState(ctx context.Context, leadID, tenantID uuid.UUID) (LeadState, error)
	UpdateLeadStatus(ctx context.Context, leadID, tenantID uuid.UUID, status domain.LeadStatus) error
	UpdateThreadOutcome(ctx context.Context, leadID, tenantID uuid.UUID, outcome domain.ThreadOutcome) error
	RecordReply(ctx context.Context, leadID, tenantID uuid.UUID, at time.Time, substantive bool) error
	AppendObjection(ctx context.Context, leadID, tenantID uuid.UUID, objection string, at time.Time) error
	RecordRejectionReason(ctx context.Context, leadID, tenantID uuid.UUID, reason string) error
	FlagFollowUp(ctx context.Context, leadID, tenantID uuid.UUID, kind string) error
}

// SequenceControl lets the machine halt or delay a lead's active sequence.
type SequenceControl interface {
	StopSequence(ctx context.Context, leadID, tenantID uuid.UUID, reason string) error
	DelayNextTouch(ctx context.Context, leadID, tenantID uuid.UUID, delay time.Duration) error
}

// Machine applies the intent table to one inbound reply at a time.
type Machine struct {
	store      Store
	classifier Classifier
	suppressor Suppressor
	sequences  SequenceControl
	bus        events.Bus
	log        *logger.Logger
}

func NewMachine(store Store, classifier Classifier, suppressor Suppressor, sequences SequenceControl, bus events.Bus, log *logger.Logger) *Machine {
	return &Machine{
		store:      store,
		classifier: classifier,
		suppressor: suppressor,
		sequences:  sequences,
		bus:        bus,
		log:        log,
	}
}

// OnReply classifies one inbound reply and transitions lead status and
// thread outcome per the intent table. A classifier failure degrades to the
// safe default intent; reply bookkeeping (counter, objection history) runs
// for every intent.
func (m *Machine) OnReply(ctx context.Context, msg IncomingMessage) (Result, error) {
	const op = "replies.Machine.OnReply"

	state, err := m.store.GetLeadState(ctx, msg.LeadID, msg.TenantID)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to load lead state", err).WithOp(op)
	}

	classification := m.classify(ctx, msg)

	// Every reply bumps the counter and timestamp, whatever the intent. Only
	// substantive intents mark the lead as having replied; out-of-office and
	// auto replies must not fail later no_reply conditions.
	if err := m.store.RecordReply(ctx, msg.LeadID, msg.TenantID, msg.ReceivedAt, classification.Intent.Substantive()); err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to record reply", err).WithOp(op)
	}
	if classification.Objection != "" {
		if err := m.store.AppendObjection(ctx, msg.LeadID, msg.TenantID, classification.Objection, msg.ReceivedAt); err != nil {
			m.log.Error("failed to append objection", "lead_id", msg.LeadID, "error", err)
		}
	}

	result, err := m.applyIntent(ctx, msg, state, classification)
	if err != nil {
		return Result{}, err
	}

	m.bus.Publish(ctx, events.ReplyClassified{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     msg.LeadID,
		TenantID:   msg.TenantID,
		Channel:    string(msg.Channel),
		Intent:     string(result.Intent),
		Confidence: result.Confidence,
	})

	return result, nil
}

func (m *Machine) classify(ctx context.Context, msg IncomingMessage) Classification {
	if m.classifier == nil {
		return fallbackClassification("no classifier configured")
	}
	classification, err := m.classifier.Classify(ctx, msg)
	if err != nil {
		m.log.Error("reply classification failed, using safe default", "lead_id", msg.LeadID, "error", err)
		return fallbackClassification("classification call failed")
	}
	return classification
}

func (m *Machine) applyIntent(ctx context.Context, msg IncomingMessage, state LeadState, c Classification) (Result, error) {
	const op = "replies.Machine.applyIntent"

	result := Result{
		Intent:       c.Intent,
		Confidence:   c.Confidence,
		StatusAfter:  state.Status,
		OutcomeAfter: state.ThreadOutcome,
	}

	switch c.Intent {
	case IntentMeetingRequest:
		if err := m.transition(ctx, msg, &result, domain.LeadStatusConverted, domain.ThreadOutcomeMeetingBooked); err != nil {
			return Result{}, err
		}
		m.stopSequence(ctx, msg, &result, "meeting_booked")
		m.bus.Publish(ctx, events.LeadConverted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    msg.LeadID,
			TenantID:  msg.TenantID,
		})

	case IntentInterested:
		if state.Status != domain.LeadStatusInSequence && state.Status.CanTransition(domain.LeadStatusInSequence) {
			if err := m.store.UpdateLeadStatus(ctx, msg.LeadID, msg.TenantID, domain.LeadStatusInSequence); err != nil {
				return Result{}, apperr.Wrap(apperr.KindInternal, "failed to update lead status", err).WithOp(op)
			}
			result.StatusAfter = domain.LeadStatusInSequence
		}
		if err := m.store.FlagFollowUp(ctx, msg.LeadID, msg.TenantID, "prioritized"); err != nil {
			m.log.Error("failed to flag follow-up", "lead_id", msg.LeadID, "error", err)
		}
		result.Actions = append(result.Actions, "flag_prioritized_follow_up")

	case IntentQuestion:
		if err := m.store.FlagFollowUp(ctx, msg.LeadID, msg.TenantID, "human_response"); err != nil {
			m.log.Error("failed to flag follow-up", "lead_id", msg.LeadID, "error", err)
		}
		result.Actions = append(result.Actions, "flag_human_response")

	case IntentNotInterested:
		if state.Status == domain.LeadStatusInSequence {
			if err := m.store.UpdateLeadStatus(ctx, msg.LeadID, msg.TenantID, domain.LeadStatusEnriched); err != nil {
				return Result{}, apperr.Wrap(apperr.KindInternal, "failed to pause lead", err).WithOp(op)
			}
			result.StatusAfter = domain.LeadStatusEnriched
		}
		// A settled thread outcome never regresses to rejected.
		if result.OutcomeAfter != domain.ThreadOutcomeRejected && !result.OutcomeAfter.IsSettled() {
			if err := m.store.UpdateThreadOutcome(ctx, msg.LeadID, msg.TenantID, domain.ThreadOutcomeRejected); err != nil {
				return Result{}, apperr.Wrap(apperr.KindInternal, "failed to update thread outcome", err).WithOp(op)
			}
			result.OutcomeAfter = domain.ThreadOutcomeRejected
		}

		reason := c.Objection
		if reason == "" {
			reason = "not_interested"
		}
		if err := m.store.RecordRejectionReason(ctx, msg.LeadID, msg.TenantID, reason); err != nil {
			m.log.Error("failed to record rejection reason", "lead_id", msg.LeadID, "error", err)
		}
		result.Actions = append(result.Actions, "record_rejection")
		m.stopSequence(ctx, msg, &result, "not_interested")

	case IntentUnsubscribe:
		if err := m.transition(ctx, msg, &result, domain.LeadStatusUnsubscribed, domain.ThreadOutcomeRejected); err != nil {
			return Result{}, err
		}
		m.stopSequence(ctx, msg, &result, "unsubscribed")
		m.suppress(ctx, msg, &result)

	case IntentOutOfOffice:
		if err := m.sequences.DelayNextTouch(ctx, msg.LeadID, msg.TenantID, outOfOfficeDelay); err != nil {
			m.log.Error("failed to delay next touch", "lead_id", msg.LeadID, "error", err)
		}
		result.Actions = append(result.Actions, "delay_next_touch")

	case IntentAutoReply:
		m.log.Info("auto-reply received", "lead_id", msg.LeadID, "channel", msg.Channel)

	default:
		return Result{}, apperr.Internal(fmt.Sprintf("unhandled intent %q", c.Intent)).WithOp(op)
	}

	return result, nil
}

// transition moves both lead status and thread outcome, skipping either leg
// the current state does not allow. Terminal statuses and settled thread
// outcomes never regress.
func (m *Machine) transition(ctx context.Context, msg IncomingMessage, result *Result, status domain.LeadStatus, outcome domain.ThreadOutcome) error {
	const op = "replies.Machine.transition"

	if result.StatusAfter != status && result.StatusAfter.CanTransition(status) {
		if err := m.store.UpdateLeadStatus(ctx, msg.LeadID, msg.TenantID, status); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to update lead status", err).WithOp(op)
		}
		result.StatusAfter = status
	}
	if result.OutcomeAfter != outcome && !result.OutcomeAfter.IsSettled() {
		if err := m.store.UpdateThreadOutcome(ctx, msg.LeadID, msg.TenantID, outcome); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to update thread outcome", err).WithOp(op)
		}
		result.OutcomeAfter = outcome
	}
	return nil
}

func (m *Machine) stopSequence(ctx context.Context, msg IncomingMessage, result *Result, reason string) {
	if err := m.sequences.StopSequence(ctx, msg.LeadID, msg.TenantID, reason); err != nil {
		m.log.Error("failed to stop sequence", "lead_id", msg.LeadID, "error", err)
		return
	}
	result.Actions = append(result.Actions, "stop_sequence")
	m.bus.Publish(ctx, events.SequenceStopped{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    msg.LeadID,
		TenantID:  msg.TenantID,
		Reason:    reason,
	})
}

func (m *Machine) suppress(ctx context.Context, msg IncomingMessage, result *Result) {
	if m.suppressor == nil || msg.Address == "" {
		return
	}
	if err := m.suppressor.Suppress(ctx, string(msg.Channel), msg.Address); err != nil {
		m.log.Error("failed to add address to suppression set", "lead_id", msg.LeadID, "error", err)
		return
	}
	result.Actions = append(result.Actions, "suppress_globally")
	m.bus.Publish(ctx, events.LeadSuppressed{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    msg.LeadID,
		TenantID:  msg.TenantID,
		Channel:   string(msg.Channel),
		Address:   msg.Address,
	})
}
