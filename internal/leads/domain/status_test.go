package domain

import "testing"

func TestTerminalLeadStatusesNeverRegress(t *testing.T) {
	terminals := []LeadStatus{LeadStatusConverted, LeadStatusUnsubscribed, LeadStatusBounced}
	targets := []LeadStatus{LeadStatusNew, LeadStatusEnriched, LeadStatusScored, LeadStatusInSequence}

	for _, from := range terminals {
		if !from.IsTerminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range targets {
			if from.CanTransition(to) {
				t.Errorf("CanTransition(%s, %s) = true, want false", from, to)
			}
		}
		// Self-transition is a no-op and allowed.
		if !from.CanTransition(from) {
			t.Errorf("CanTransition(%s, %s) = false, want true", from, from)
		}
	}
}

func TestNonTerminalTransitionsAllowed(t *testing.T) {
	cases := []struct {
		from, to LeadStatus
	}{
		{LeadStatusNew, LeadStatusEnriched},
		{LeadStatusEnriched, LeadStatusScored},
		{LeadStatusScored, LeadStatusInSequence},
		{LeadStatusInSequence, LeadStatusConverted},
		{LeadStatusInSequence, LeadStatusEnriched}, // pause on not_interested
		{LeadStatusInSequence, LeadStatusUnsubscribed},
	}

	for _, tc := range cases {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tc.from, tc.to)
		}
	}
}

func TestParseLeadStatusRejectsUnknown(t *testing.T) {
	if _, ok := ParseLeadStatus("qualified"); ok {
		t.Error("ParseLeadStatus accepted unknown status")
	}
	if _, ok := ParseLeadStatus(""); ok {
		t.Error("ParseLeadStatus accepted empty status")
	}
	if status, ok := ParseLeadStatus("in_sequence"); !ok || status != LeadStatusInSequence {
		t.Errorf("ParseLeadStatus(in_sequence) = %q, %v", status, ok)
	}
}

func TestThreadOutcomeSettled(t *testing.T) {
	if ThreadOutcomeOngoing.IsSettled() {
		t.Error("ongoing should not be settled")
	}
	if !ThreadOutcomeMeetingBooked.IsSettled() || !ThreadOutcomeRejected.IsSettled() {
		t.Error("meeting_booked and rejected should be settled")
	}
}
