package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/campaigns"
	"github.com/Keiracom/Agency-OS-sub001/internal/leads"
	"github.com/Keiracom/Agency-OS-sub001/internal/leads/domain"
	"github.com/Keiracom/Agency-OS-sub001/internal/seats"
	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
)

type fakeSequences struct {
	ls  campaigns.LeadSequence
	err error
}

func (f *fakeSequences) GetLeadSequence(ctx context.Context, campaignID, leadID uuid.UUID) (campaigns.LeadSequence, error) {
	return f.ls, f.err
}

type fakeLeadReader struct {
	lead leads.Lead
	err  error
}

func (f *fakeLeadReader) GetByID(ctx context.Context, leadID, tenantID uuid.UUID) (leads.Lead, error) {
	return f.lead, f.err
}

type fakeAllocator struct {
	seat       seats.Seat
	pickErr    error
	consumeErr error
	consumed   int
}

func (f *fakeAllocator) PickSeat(ctx context.Context, tenantID uuid.UUID, channel string) (seats.Seat, error) {
	return f.seat, f.pickErr
}

func (f *fakeAllocator) ConsumeQuota(ctx context.Context, seatID uuid.UUID, day time.Time, limit int) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	f.consumed++
	return nil
}

type stubSuppressor struct {
	suppressed bool
	err        error
}

func (s *stubSuppressor) Suppress(ctx context.Context, channel, address string) error { return nil }

func (s *stubSuppressor) IsSuppressed(ctx context.Context, channel, address string) (bool, error) {
	return s.suppressed, s.err
}

type gateFixture struct {
	gate      *Gate
	sequences *fakeSequences
	leadR     *fakeLeadReader
	allocator *fakeAllocator
	supp      *stubSuppressor
	now       time.Time
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	now := time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)
	activated := now.Add(-30 * 24 * time.Hour)

	f := &gateFixture{
		sequences: &fakeSequences{
			ls: campaigns.LeadSequence{
				CampaignID: uuid.New(),
				LeadID:     uuid.New(),
				TenantID:   uuid.New(),
			},
		},
		leadR: &fakeLeadReader{
			lead: leads.Lead{
				ID:         uuid.New(),
				Status:     domain.LeadStatusInSequence,
				Email:      "sam@example.com",
				Phone:      "+14155552671",
				ProfileURL: "https://example.com/in/sam",
				ALSScore:   90,
			},
		},
		allocator: &fakeAllocator{
			seat: seats.Seat{
				ID:          uuid.New(),
				Status:      seats.StatusActive,
				ActivatedAt: &activated,
			},
		},
		supp: &stubSuppressor{},
		now:  now,
	}
	f.gate = NewGate(f.sequences, f.leadR, f.allocator, f.supp, logger.New("development")).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *gateFixture) authorize(t *testing.T, touch sequence.Touch) Verdict {
	t.Helper()
	verdict, err := f.gate.Authorize(context.Background(), f.sequences.ls.CampaignID, f.sequences.ls.LeadID, touch)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	return verdict
}

func emailTouch() sequence.Touch {
	return sequence.Touch{Day: 5, Channel: sequence.ChannelEmail, Condition: "no_reply", ContentKey: "email_value_add"}
}

func TestAuthorizeSendsWhenAllChecksPass(t *testing.T) {
	f := newGateFixture(t)

	verdict := f.authorize(t, emailTouch())

	if verdict.Kind != VerdictSend {
		t.Fatalf("kind = %s (%s), want send", verdict.Kind, verdict.Reason)
	}
	if verdict.Seat.ID != f.allocator.seat.ID {
		t.Errorf("seat = %s, want %s", verdict.Seat.ID, f.allocator.seat.ID)
	}
	if f.allocator.consumed != 1 {
		t.Errorf("quota consumed %d times, want 1", f.allocator.consumed)
	}
}

func TestAuthorizeStopsStoppedSequence(t *testing.T) {
	f := newGateFixture(t)
	f.sequences.ls.Stopped = true
	f.sequences.ls.StopReason = "replied"

	verdict := f.authorize(t, emailTouch())

	if verdict.Kind != VerdictStop {
		t.Fatalf("kind = %s, want stop", verdict.Kind)
	}
	if verdict.Reason != "sequence_stopped:replied" {
		t.Errorf("reason = %q", verdict.Reason)
	}
	if f.allocator.consumed != 0 {
		t.Error("quota consumed for a stopped sequence")
	}
}

func TestAuthorizeStopsTerminalLead(t *testing.T) {
	for _, status := range []domain.LeadStatus{domain.LeadStatusConverted, domain.LeadStatusUnsubscribed, domain.LeadStatusBounced} {
		t.Run(string(status), func(t *testing.T) {
			f := newGateFixture(t)
			f.leadR.lead.Status = status

			verdict := f.authorize(t, emailTouch())

			if verdict.Kind != VerdictStop {
				t.Fatalf("kind = %s, want stop", verdict.Kind)
			}
		})
	}
}

func TestAuthorizeStopsSuppressedAddress(t *testing.T) {
	f := newGateFixture(t)
	f.supp.suppressed = true

	verdict := f.authorize(t, emailTouch())

	if verdict.Kind != VerdictStop || verdict.Reason != "suppressed" {
		t.Fatalf("verdict = %s/%s, want stop/suppressed", verdict.Kind, verdict.Reason)
	}
}

func TestAuthorizeDefersWhenSuppressionCheckFails(t *testing.T) {
	f := newGateFixture(t)
	f.supp.err = errors.New("redis down")

	verdict := f.authorize(t, emailTouch())

	if verdict.Kind != VerdictDefer {
		t.Fatalf("kind = %s, want defer", verdict.Kind)
	}
	if want := f.now.Add(time.Hour); !verdict.RetryAt.Equal(want) {
		t.Errorf("retry at %s, want %s", verdict.RetryAt, want)
	}
}

func TestAuthorizeStopsOnReply(t *testing.T) {
	f := newGateFixture(t)
	repliedAt := f.now.Add(-2 * time.Hour)
	f.leadR.lead.ReplyCount = 2
	f.leadR.lead.LastSubstantiveReplyAt = &repliedAt

	verdict := f.authorize(t, emailTouch())

	if verdict.Kind != VerdictStop || verdict.Reason != "replied" {
		t.Fatalf("verdict = %s/%s, want stop/replied", verdict.Kind, verdict.Reason)
	}
}

func TestAuthorizeSendsAfterOutOfOfficeDelay(t *testing.T) {
	// An out-of-office reply bumps the counter and pushes the next touch two
	// weeks out. It is not a substantive reply, so once the delay elapses the
	// touch must still pass its no_reply condition and dispatch.
	f := newGateFixture(t)
	f.leadR.lead.ReplyCount = 1
	delayUntil := f.now.Add(14 * 24 * time.Hour)
	f.sequences.ls.DelayUntil = &delayUntil

	verdict := f.authorize(t, emailTouch())
	if verdict.Kind != VerdictDefer || !verdict.RetryAt.Equal(delayUntil) {
		t.Fatalf("verdict = %s/%s at %s, want defer until %s", verdict.Kind, verdict.Reason, verdict.RetryAt, delayUntil)
	}

	f.now = delayUntil.Add(time.Minute)
	verdict = f.authorize(t, emailTouch())
	if verdict.Kind != VerdictSend {
		t.Fatalf("kind = %s (%s), want send after the delay elapsed", verdict.Kind, verdict.Reason)
	}
	if f.allocator.consumed != 1 {
		t.Errorf("quota consumed %d times, want 1", f.allocator.consumed)
	}
}

func TestAuthorizeSkipsUnmetScoreCondition(t *testing.T) {
	f := newGateFixture(t)
	f.leadR.lead.ALSScore = 60

	touch := sequence.Touch{Day: 14, Channel: sequence.ChannelVoice, Condition: "als_score>=85 AND no_reply", SkipIf: sequence.SkipMissingPhone}
	verdict := f.authorize(t, touch)

	if verdict.Kind != VerdictSkip || verdict.Reason != "condition_not_met" {
		t.Fatalf("verdict = %s/%s, want skip/condition_not_met", verdict.Kind, verdict.Reason)
	}
}

func TestAuthorizeSkipsMissingContactData(t *testing.T) {
	f := newGateFixture(t)
	f.leadR.lead.ProfileURL = ""

	touch := sequence.Touch{Day: 3, Channel: sequence.ChannelSocial, Condition: "no_reply", SkipIf: sequence.SkipMissingProfileURL}
	verdict := f.authorize(t, touch)

	if verdict.Kind != VerdictSkip {
		t.Fatalf("kind = %s, want skip", verdict.Kind)
	}
	if f.allocator.consumed != 0 {
		t.Error("quota consumed for a skipped touch")
	}
}

func TestAuthorizeSkipsUndialablePhone(t *testing.T) {
	f := newGateFixture(t)
	f.leadR.lead.Phone = "not-a-number"

	touch := sequence.Touch{Day: 8, Channel: sequence.ChannelSMS, Condition: "no_reply", SkipIf: sequence.SkipMissingPhone}
	verdict := f.authorize(t, touch)

	if verdict.Kind != VerdictSkip || verdict.Reason != "undialable_phone" {
		t.Fatalf("verdict = %s/%s, want skip/undialable_phone", verdict.Kind, verdict.Reason)
	}
}

func TestAuthorizeDefersDelayedSequence(t *testing.T) {
	f := newGateFixture(t)
	delayUntil := f.now.Add(7 * 24 * time.Hour)
	f.sequences.ls.DelayUntil = &delayUntil

	verdict := f.authorize(t, emailTouch())

	if verdict.Kind != VerdictDefer || verdict.Reason != "delayed" {
		t.Fatalf("verdict = %s/%s, want defer/delayed", verdict.Kind, verdict.Reason)
	}
	if !verdict.RetryAt.Equal(delayUntil) {
		t.Errorf("retry at %s, want %s", verdict.RetryAt, delayUntil)
	}
}

func TestAuthorizeDefersWhenNoSeatAvailable(t *testing.T) {
	f := newGateFixture(t)
	f.allocator.pickErr = seats.ErrNotFound

	verdict := f.authorize(t, emailTouch())

	if verdict.Kind != VerdictDefer || verdict.Reason != "no_seat_available" {
		t.Fatalf("verdict = %s/%s, want defer/no_seat_available", verdict.Kind, verdict.Reason)
	}
}

func TestAuthorizeDefersExhaustedQuotaToNextDay(t *testing.T) {
	f := newGateFixture(t)
	f.allocator.consumeErr = seats.ErrQuotaExhausted

	verdict := f.authorize(t, emailTouch())

	if verdict.Kind != VerdictDefer || verdict.Reason != "quota_exhausted" {
		t.Fatalf("verdict = %s/%s, want defer/quota_exhausted", verdict.Kind, verdict.Reason)
	}
	want := time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)
	if !verdict.RetryAt.Equal(want) {
		t.Errorf("retry at %s, want next UTC midnight %s", verdict.RetryAt, want)
	}
}
