// Package dispatch executes due touches. The gate re-checks every send
// precondition at dispatch time; planning decisions are never trusted after
// the fact.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/campaigns"
	"github.com/Keiracom/Agency-OS-sub001/internal/leads"
	"github.com/Keiracom/Agency-OS-sub001/internal/replies"
	"github.com/Keiracom/Agency-OS-sub001/internal/seats"
	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"
	"github.com/Keiracom/Agency-OS-sub001/platform/phone"

	"github.com/google/uuid"
)

// VerdictKind says what happens to a touch at the gate.
type VerdictKind string

const (
	// VerdictSend authorizes the send; quota has been consumed.
	VerdictSend VerdictKind = "send"
	// VerdictSkip omits the touch and advances the sequence. Not an error.
	VerdictSkip VerdictKind = "skip"
	// VerdictDefer re-enqueues the same touch for RetryAt.
	VerdictDefer VerdictKind = "defer"
	// VerdictStop ends processing for this lead's sequence.
	VerdictStop VerdictKind = "stop"
)

// Verdict is the gate's decision for one touch.
type Verdict struct {
	Kind    VerdictKind
	Reason  string
	RetryAt time.Time
	Seat    seats.Seat
}

// SequenceReader provides the per-lead sequence progress the gate checks.
type SequenceReader interface {
	GetLeadSequence(ctx context.Context, campaignID, leadID uuid.UUID) (campaigns.LeadSequence, error)
}

// LeadReader provides current lead state.
type LeadReader interface {
	GetByID(ctx context.Context, leadID, tenantID uuid.UUID) (leads.Lead, error)
}

// SeatAllocator picks a seat and consumes its quota.
type SeatAllocator interface {
	PickSeat(ctx context.Context, tenantID uuid.UUID, channel string) (seats.Seat, error)
	ConsumeQuota(ctx context.Context, seatID uuid.UUID, day time.Time, limit int) error
}

// Gate authorizes touches immediately before each send.
type Gate struct {
	sequences  SequenceReader
	leads      LeadReader
	seats      SeatAllocator
	suppressor replies.Suppressor
	log        *logger.Logger
	now        func() time.Time
}

func NewGate(sequences SequenceReader, leadReader LeadReader, allocator SeatAllocator, suppressor replies.Suppressor, log *logger.Logger) *Gate {
	return &Gate{
		sequences:  sequences,
		leads:      leadReader,
		seats:      allocator,
		suppressor: suppressor,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the gate's clock. Used by tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Authorize decides whether a due touch may be sent right now. The checks
// run in order: stop-on-reply and terminal status first, then suppression,
// the touch condition, missing-data skip, out-of-office delay, and finally
// the atomic quota take. Quota exhaustion defers to the next day, never
// fails.
func (g *Gate) Authorize(ctx context.Context, campaignID, leadID uuid.UUID, touch sequence.Touch) (Verdict, error) {
	ls, err := g.sequences.GetLeadSequence(ctx, campaignID, leadID)
	if err != nil {
		return Verdict{}, err
	}
	if ls.Stopped {
		return Verdict{Kind: VerdictStop, Reason: "sequence_stopped:" + ls.StopReason}, nil
	}

	lead, err := g.leads.GetByID(ctx, leadID, ls.TenantID)
	if err != nil {
		return Verdict{}, err
	}
	if lead.Status.IsTerminal() {
		return Verdict{Kind: VerdictStop, Reason: "lead_terminal:" + string(lead.Status)}, nil
	}

	if verdict, done := g.checkSuppression(ctx, lead, touch.Channel); done {
		return verdict, nil
	}

	// Only substantive replies count against no_reply conditions. An
	// out-of-office or auto reply bumps ReplyCount but leaves the marker
	// unset, so the rescheduled touch still goes out.
	state := sequence.ConditionState{
		HasReplied: lead.LastSubstantiveReplyAt != nil,
		ALSScore:   lead.ALSScore,
	}
	if !sequence.EvalCondition(touch.Condition, state) {
		// A replied lead fails no_reply on every remaining touch; the reply
		// handler has stopped the sequence already or will shortly.
		if state.HasReplied {
			return Verdict{Kind: VerdictStop, Reason: "replied"}, nil
		}
		return Verdict{Kind: VerdictSkip, Reason: "condition_not_met"}, nil
	}

	if skipReason, skip := g.missingData(lead, touch); skip {
		return Verdict{Kind: VerdictSkip, Reason: skipReason}, nil
	}

	now := g.now()
	if ls.DelayUntil != nil && ls.DelayUntil.After(now) {
		return Verdict{Kind: VerdictDefer, Reason: "delayed", RetryAt: *ls.DelayUntil}, nil
	}

	return g.takeQuota(ctx, ls.TenantID, touch, now)
}

func (g *Gate) checkSuppression(ctx context.Context, lead leads.Lead, channel sequence.Channel) (Verdict, bool) {
	if g.suppressor == nil {
		return Verdict{}, false
	}
	address := lead.Email
	if channel == sequence.ChannelSMS || channel == sequence.ChannelVoice {
		address = lead.Phone
	}
	if address == "" {
		return Verdict{}, false
	}

	suppressed, err := g.suppressor.IsSuppressed(ctx, string(channel), address)
	if err != nil {
		// Fail closed: an unreachable suppression set withholds the send.
		g.log.Error("suppression check failed", "lead_id", lead.ID, "error", err)
		return Verdict{Kind: VerdictDefer, Reason: "suppression_check_failed", RetryAt: g.now().Add(time.Hour)}, true
	}
	if suppressed {
		return Verdict{Kind: VerdictStop, Reason: "suppressed"}, true
	}
	return Verdict{}, false
}

// missingData evaluates the touch's skip rule against the lead's contact
// data. Phone-based rules additionally require a dialable number.
func (g *Gate) missingData(lead leads.Lead, touch sequence.Touch) (string, bool) {
	info := leads.ContactInfo{
		Email:          lead.Email,
		Phone:          lead.Phone,
		ProfileURL:     lead.ProfileURL,
		MailingAddress: lead.MailingAddress,
	}
	if !info.HasDataFor(touch.SkipIf) {
		return string(touch.SkipIf), true
	}
	if touch.SkipIf == sequence.SkipMissingPhone && !phone.IsDialable(lead.Phone) {
		return "undialable_phone", true
	}
	return "", false
}

func (g *Gate) takeQuota(ctx context.Context, tenantID uuid.UUID, touch sequence.Touch, now time.Time) (Verdict, error) {
	seat, err := g.seats.PickSeat(ctx, tenantID, string(touch.Channel))
	if errors.Is(err, seats.ErrNotFound) {
		return Verdict{Kind: VerdictDefer, Reason: "no_seat_available", RetryAt: nextDay(now)}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	limit := seats.DailyLimit(seat, now)
	err = g.seats.ConsumeQuota(ctx, seat.ID, now, limit)
	if errors.Is(err, seats.ErrQuotaExhausted) {
		return Verdict{Kind: VerdictDefer, Reason: "quota_exhausted", RetryAt: nextDay(now), Seat: seat}, nil
	}
	if err != nil {
		return Verdict{}, err
	}

	return Verdict{Kind: VerdictSend, Seat: seat}, nil
}

// nextDay is the start of the next UTC day, when fresh quota becomes
// available.
func nextDay(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}
