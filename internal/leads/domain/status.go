// Package domain provides core business rules for the leads bounded context.
package domain

// LeadStatus is the lifecycle status of a lead. The set is closed; values
// arriving from storage or transport must pass ParseLeadStatus.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusEnriched     LeadStatus = "enriched"
	LeadStatusScored       LeadStatus = "scored"
	LeadStatusInSequence   LeadStatus = "in_sequence"
	LeadStatusConverted    LeadStatus = "converted"
	LeadStatusUnsubscribed LeadStatus = "unsubscribed"
	LeadStatusBounced      LeadStatus = "bounced"
)

var knownLeadStatuses = map[LeadStatus]struct{}{
	LeadStatusNew:          {},
	LeadStatusEnriched:     {},
	LeadStatusScored:       {},
	LeadStatusInSequence:   {},
	LeadStatusConverted:    {},
	LeadStatusUnsubscribed: {},
	LeadStatusBounced:      {},
}

// terminalLeadStatuses are statuses from which the lead never leaves.
var terminalLeadStatuses = map[LeadStatus]bool{
	LeadStatusConverted:    true,
	LeadStatusUnsubscribed: true,
	LeadStatusBounced:      true,
}

// ParseLeadStatus validates a raw status string.
func ParseLeadStatus(raw string) (LeadStatus, bool) {
	status := LeadStatus(raw)
	_, ok := knownLeadStatuses[status]
	return status, ok
}

// IsTerminal returns true if no further transitions are allowed from the
// status. Terminal leads must never be touched by planning or dispatch.
func (s LeadStatus) IsTerminal() bool {
	return terminalLeadStatuses[s]
}

// CanTransition reports whether moving from s to next is allowed.
// Terminal statuses never regress; everything else may advance.
func (s LeadStatus) CanTransition(next LeadStatus) bool {
	if _, ok := knownLeadStatuses[next]; !ok {
		return false
	}
	if s == next {
		return true
	}
	return !s.IsTerminal()
}

// ThreadOutcome is the current outcome of a conversation thread.
type ThreadOutcome string

const (
	ThreadOutcomeOngoing       ThreadOutcome = "ongoing"
	ThreadOutcomeMeetingBooked ThreadOutcome = "meeting_booked"
	ThreadOutcomeRejected      ThreadOutcome = "rejected"
)

var knownThreadOutcomes = map[ThreadOutcome]struct{}{
	ThreadOutcomeOngoing:       {},
	ThreadOutcomeMeetingBooked: {},
	ThreadOutcomeRejected:      {},
}

// ParseThreadOutcome validates a raw outcome string.
func ParseThreadOutcome(raw string) (ThreadOutcome, bool) {
	outcome := ThreadOutcome(raw)
	_, ok := knownThreadOutcomes[outcome]
	return outcome, ok
}

// IsSettled returns true once a thread has reached a non-ongoing outcome.
func (o ThreadOutcome) IsSettled() bool {
	return o == ThreadOutcomeMeetingBooked || o == ThreadOutcomeRejected
}
