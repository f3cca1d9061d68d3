package replies

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	"github.com/Keiracom/Agency-OS-sub001/internal/leads/domain"
	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	state              LeadState
	replyCount         int
	substantiveReplies int
	lastReplyAt        time.Time
	objections         []string
	rejectionReason    string
	followUpKind       string
}

func (f *fakeStore) GetLeadState(_ context.Context, _, _ uuid.UUID) (LeadState, error) {
	return f.state, nil
}

func (f *fakeStore) UpdateLeadStatus(_ context.Context, _, _ uuid.UUID, status domain.LeadStatus) error {
	f.state.Status = status
	return nil
}

func (f *fakeStore) UpdateThreadOutcome(_ context.Context, _, _ uuid.UUID, outcome domain.ThreadOutcome) error {
	f.state.ThreadOutcome = outcome
	return nil
}

func (f *fakeStore) RecordReply(_ context.Context, _, _ uuid.UUID, at time.Time, substantive bool) error {
	f.replyCount++
	if substantive {
		f.substantiveReplies++
	}
	f.lastReplyAt = at
	return nil
}

func (f *fakeStore) AppendObjection(_ context.Context, _, _ uuid.UUID, objection string, _ time.Time) error {
	f.objections = append(f.objections, objection)
	return nil
}

func (f *fakeStore) RecordRejectionReason(_ context.Context, _, _ uuid.UUID, reason string) error {
	f.rejectionReason = reason
	return nil
}

func (f *fakeStore) FlagFollowUp(_ context.Context, _, _ uuid.UUID, kind string) error {
	f.followUpKind = kind
	return nil
}

type stubClassifier struct {
	result Classification
	err    error
}

func (s stubClassifier) Classify(_ context.Context, _ IncomingMessage) (Classification, error) {
	return s.result, s.err
}

type fakeSuppressor struct {
	entries map[string]bool
	err     error
}

func (f *fakeSuppressor) Suppress(_ context.Context, channel, address string) error {
	if f.err != nil {
		return f.err
	}
	if f.entries == nil {
		f.entries = make(map[string]bool)
	}
	f.entries[channel+":"+address] = true
	return nil
}

func (f *fakeSuppressor) IsSuppressed(_ context.Context, channel, address string) (bool, error) {
	return f.entries[channel+":"+address], nil
}

type fakeSequences struct {
	stopped    bool
	stopReason string
	delayed    time.Duration
}

func (f *fakeSequences) StopSequence(_ context.Context, _, _ uuid.UUID, reason string) error {
	f.stopped = true
	f.stopReason = reason
	return nil
}

func (f *fakeSequences) DelayNextTouch(_ context.Context, _, _ uuid.UUID, delay time.Duration) error {
	f.delayed = delay
	return nil
}

type machineFixture struct {
	machine    *Machine
	store      *fakeStore
	suppressor *fakeSuppressor
	sequences  *fakeSequences
}

func newMachineFixture(initial LeadState, c Classifier) *machineFixture {
	log := logger.New("development")
	store := &fakeStore{state: initial}
	suppressor := &fakeSuppressor{}
	sequences := &fakeSequences{}
	return &machineFixture{
		machine:    NewMachine(store, c, suppressor, sequences, events.NewInMemoryBus(log), log),
		store:      store,
		suppressor: suppressor,
		sequences:  sequences,
	}
}

func inSequenceState() LeadState {
	return LeadState{Status: domain.LeadStatusInSequence, ThreadOutcome: domain.ThreadOutcomeOngoing}
}

func incomingEmail() IncomingMessage {
	return IncomingMessage{
		LeadID:     uuid.New(),
		TenantID:   uuid.New(),
		Channel:    sequence.ChannelEmail,
		Address:    "Prospect@Example.com",
		Subject:    "Re: quick question",
		Body:       "hello",
		ReceivedAt: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestOnReplyMeetingRequest(t *testing.T) {
	fx := newMachineFixture(inSequenceState(), stubClassifier{
		result: Classification{Intent: IntentMeetingRequest, Confidence: 0.95},
	})

	result, err := fx.machine.OnReply(context.Background(), incomingEmail())
	if err != nil {
		t.Fatalf("OnReply: %v", err)
	}

	if result.StatusAfter != domain.LeadStatusConverted {
		t.Errorf("status = %s, want converted", result.StatusAfter)
	}
	if result.OutcomeAfter != domain.ThreadOutcomeMeetingBooked {
		t.Errorf("outcome = %s, want meeting_booked", result.OutcomeAfter)
	}
	if !fx.sequences.stopped {
		t.Error("sequence should be stopped on a booked meeting")
	}
	if fx.store.replyCount != 1 || fx.store.substantiveReplies != 1 {
		t.Errorf("replies = %d/%d substantive, want 1/1", fx.store.replyCount, fx.store.substantiveReplies)
	}
}

func TestOnReplyUnsubscribeSuppressesGlobally(t *testing.T) {
	// Reply classified unsubscribe: lead unsubscribed, thread rejected,
	// address lands on the do-not-contact set.
	fx := newMachineFixture(inSequenceState(), stubClassifier{
		result: Classification{Intent: IntentUnsubscribe, Confidence: 0.9},
	})

	msg := incomingEmail()
	result, err := fx.machine.OnReply(context.Background(), msg)
	if err != nil {
		t.Fatalf("OnReply: %v", err)
	}

	if result.StatusAfter != domain.LeadStatusUnsubscribed {
		t.Errorf("status = %s, want unsubscribed", result.StatusAfter)
	}
	if result.OutcomeAfter != domain.ThreadOutcomeRejected {
		t.Errorf("outcome = %s, want rejected", result.OutcomeAfter)
	}
	if !fx.suppressor.entries["email:"+msg.Address] {
		t.Error("address should be in the suppression set")
	}
	if !slices.Contains(result.Actions, "stop_sequence") || !slices.Contains(result.Actions, "suppress_globally") {
		t.Errorf("actions = %v", result.Actions)
	}
}

func TestOnReplyNotInterestedPausesAndRejects(t *testing.T) {
	fx := newMachineFixture(inSequenceState(), stubClassifier{
		result: Classification{Intent: IntentNotInterested, Confidence: 0.8, Objection: "pricing"},
	})

	result, err := fx.machine.OnReply(context.Background(), incomingEmail())
	if err != nil {
		t.Fatalf("OnReply: %v", err)
	}

	if result.StatusAfter != domain.LeadStatusEnriched {
		t.Errorf("status = %s, want enriched (paused)", result.StatusAfter)
	}
	if result.OutcomeAfter != domain.ThreadOutcomeRejected {
		t.Errorf("outcome = %s, want rejected", result.OutcomeAfter)
	}
	if fx.store.rejectionReason != "pricing" {
		t.Errorf("rejectionReason = %q, want pricing", fx.store.rejectionReason)
	}
	if len(fx.store.objections) != 1 || fx.store.objections[0] != "pricing" {
		t.Errorf("objections = %v", fx.store.objections)
	}
	if fx.sequences.stopReason != "not_interested" {
		t.Errorf("stopReason = %q", fx.sequences.stopReason)
	}
}

func TestOnReplyNotInterestedKeepsBookedMeeting(t *testing.T) {
	// A lead that already booked a meeting later replies "not interested".
	// The settled thread outcome must not regress to rejected.
	fx := newMachineFixture(LeadState{
		Status:        domain.LeadStatusConverted,
		ThreadOutcome: domain.ThreadOutcomeMeetingBooked,
	}, stubClassifier{result: Classification{Intent: IntentNotInterested, Confidence: 0.8}})

	result, err := fx.machine.OnReply(context.Background(), incomingEmail())
	if err != nil {
		t.Fatalf("OnReply: %v", err)
	}

	if result.OutcomeAfter != domain.ThreadOutcomeMeetingBooked {
		t.Errorf("outcome = %s, want meeting_booked preserved", result.OutcomeAfter)
	}
	if result.StatusAfter != domain.LeadStatusConverted {
		t.Errorf("status = %s, want converted preserved", result.StatusAfter)
	}
}

func TestOnReplyInterestedReopensPausedLead(t *testing.T) {
	fx := newMachineFixture(LeadState{
		Status:        domain.LeadStatusEnriched,
		ThreadOutcome: domain.ThreadOutcomeOngoing,
	}, stubClassifier{result: Classification{Intent: IntentInterested, Confidence: 0.7}})

	result, err := fx.machine.OnReply(context.Background(), incomingEmail())
	if err != nil {
		t.Fatalf("OnReply: %v", err)
	}

	if result.StatusAfter != domain.LeadStatusInSequence {
		t.Errorf("status = %s, want in_sequence", result.StatusAfter)
	}
	if fx.store.followUpKind != "prioritized" {
		t.Errorf("followUpKind = %q, want prioritized", fx.store.followUpKind)
	}
}

func TestOnReplyQuestionLeavesStateUnchanged(t *testing.T) {
	fx := newMachineFixture(inSequenceState(), stubClassifier{
		result: Classification{Intent: IntentQuestion, Confidence: 0.6},
	})

	result, err := fx.machine.OnReply(context.Background(), incomingEmail())
	if err != nil {
		t.Fatalf("OnReply: %v", err)
	}

	if result.StatusAfter != domain.LeadStatusInSequence || result.OutcomeAfter != domain.ThreadOutcomeOngoing {
		t.Errorf("state changed on question: %s / %s", result.StatusAfter, result.OutcomeAfter)
	}
	if fx.store.followUpKind != "human_response" {
		t.Errorf("followUpKind = %q, want human_response", fx.store.followUpKind)
	}
}

func TestOnReplyOutOfOfficeDelaysNextTouch(t *testing.T) {
	fx := newMachineFixture(inSequenceState(), stubClassifier{
		result: Classification{Intent: IntentOutOfOffice, Confidence: 0.85},
	})

	if _, err := fx.machine.OnReply(context.Background(), incomingEmail()); err != nil {
		t.Fatalf("OnReply: %v", err)
	}

	if fx.sequences.delayed != 14*24*time.Hour {
		t.Errorf("delay = %v, want 14 days", fx.sequences.delayed)
	}
	if fx.sequences.stopped {
		t.Error("out_of_office must not stop the sequence")
	}
	if fx.store.replyCount != 1 || fx.store.substantiveReplies != 0 {
		t.Errorf("replies = %d/%d substantive, want 1/0: the rescheduled touch must still pass no_reply",
			fx.store.replyCount, fx.store.substantiveReplies)
	}
}

func TestOnReplyAutoReplyIsNoOpButCounted(t *testing.T) {
	fx := newMachineFixture(inSequenceState(), stubClassifier{
		result: Classification{Intent: IntentAutoReply, Confidence: 0.9, Objection: "timing"},
	})

	result, err := fx.machine.OnReply(context.Background(), incomingEmail())
	if err != nil {
		t.Fatalf("OnReply: %v", err)
	}

	if len(result.Actions) != 0 {
		t.Errorf("actions = %v, want none", result.Actions)
	}
	if fx.store.replyCount != 1 {
		t.Error("auto-reply must still bump the reply counter")
	}
	if fx.store.substantiveReplies != 0 {
		t.Error("auto-reply must not count as a substantive reply")
	}
	// Objection history is appended even when the intent is a no-op.
	if len(fx.store.objections) != 1 || fx.store.objections[0] != "timing" {
		t.Errorf("objections = %v", fx.store.objections)
	}
}

func TestOnReplyClassifierFailureDegradesToQuestion(t *testing.T) {
	fx := newMachineFixture(inSequenceState(), stubClassifier{err: errors.New("model unavailable")})

	result, err := fx.machine.OnReply(context.Background(), incomingEmail())
	if err != nil {
		t.Fatalf("OnReply must not fail on classifier outage: %v", err)
	}

	if result.Intent != IntentQuestion || result.Confidence != 0 {
		t.Errorf("result = %s/%v, want question with confidence 0", result.Intent, result.Confidence)
	}
	if fx.store.replyCount != 1 {
		t.Error("reply must still be recorded")
	}
}

func TestOnReplyNilClassifierDegradesToQuestion(t *testing.T) {
	fx := newMachineFixture(inSequenceState(), nil)

	result, err := fx.machine.OnReply(context.Background(), incomingEmail())
	if err != nil {
		t.Fatalf("OnReply: %v", err)
	}
	if result.Intent != IntentQuestion {
		t.Errorf("intent = %s, want question", result.Intent)
	}
}

func TestOnReplyTerminalStatusNeverRegresses(t *testing.T) {
	// A converted lead replying "unsubscribe" keeps its terminal status; the
	// thread outcome is already settled and stays meeting_booked.
	fx := newMachineFixture(LeadState{
		Status:        domain.LeadStatusConverted,
		ThreadOutcome: domain.ThreadOutcomeMeetingBooked,
	}, stubClassifier{result: Classification{Intent: IntentUnsubscribe, Confidence: 0.9}})

	result, err := fx.machine.OnReply(context.Background(), incomingEmail())
	if err != nil {
		t.Fatalf("OnReply: %v", err)
	}

	if result.StatusAfter != domain.LeadStatusConverted {
		t.Errorf("status = %s, want converted preserved", result.StatusAfter)
	}
	if result.OutcomeAfter != domain.ThreadOutcomeMeetingBooked {
		t.Errorf("outcome = %s, want meeting_booked preserved", result.OutcomeAfter)
	}
	if fx.store.replyCount != 1 {
		t.Error("reply bookkeeping still runs for terminal leads")
	}
}
