// Package campaigns owns campaign lifecycle: activation plans a sequence per
// lead, dispatch executes due touches behind the gate.
package campaigns

import (
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"

	"github.com/google/uuid"
)

// Status is the campaign lifecycle status.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
)

var knownStatuses = map[Status]struct{}{
	StatusDraft:     {},
	StatusActive:    {},
	StatusCompleted: {},
	StatusStopped:   {},
}

// ParseStatus validates a raw campaign status string.
func ParseStatus(raw string) (Status, bool) {
	status := Status(raw)
	_, ok := knownStatuses[status]
	return status, ok
}

// Campaign is one outreach campaign.
type Campaign struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Status      Status
	Profile     sequence.TargetProfile
	Channels    []sequence.Channel
	Aggressive  bool
	LeadBudget  int
	CreatedAt   time.Time
	ActivatedAt *time.Time
}

// LeadSequence is one lead's planned sequence within a campaign. Sequences
// are regenerated, never mutated; progress lives in NextTouch.
type LeadSequence struct {
	CampaignID uuid.UUID
	LeadID     uuid.UUID
	TenantID   uuid.UUID
	Sequence   sequence.Sequence
	NextTouch  int
	Stopped    bool
	StopReason string
	DelayUntil *time.Time
	PlannedAt  time.Time
}

// CurrentTouch returns the next undispatched touch, or false when the
// sequence is exhausted.
func (ls LeadSequence) CurrentTouch() (sequence.Touch, bool) {
	if ls.NextTouch < 0 || ls.NextTouch >= len(ls.Sequence.Touches) {
		return sequence.Touch{}, false
	}
	return ls.Sequence.Touches[ls.NextTouch], true
}
