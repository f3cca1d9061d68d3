// Package connections owns social-network connection requests and the
// periodic reaper that retires stale ones.
package connections

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a connection request. Once a request
// leaves pending its status is immutable, with one exception: ignored may
// still progress to withdrawn by the 30-day rule.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusIgnored   Status = "ignored"
	StatusDeclined  Status = "declined"
	StatusWithdrawn Status = "withdrawn"
)

var knownStatuses = map[Status]struct{}{
	StatusPending:   {},
	StatusAccepted:  {},
	StatusIgnored:   {},
	StatusDeclined:  {},
	StatusWithdrawn: {},
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	status := Status(raw)
	_, ok := knownStatuses[status]
	return status, ok
}

// Request is one outbound connection request sent from a seat.
type Request struct {
	ID                uuid.UUID
	SeatID            uuid.UUID
	TenantID          uuid.UUID
	LeadID            uuid.UUID
	ProviderRequestID *string
	Status            Status
	RequestedAt       time.Time
	RespondedAt       *time.Time
}

// Reaper age thresholds against requested_at.
const (
	ignoreAfter   = 14 * 24 * time.Hour
	withdrawAfter = 30 * 24 * time.Hour
)

// SweepStats summarizes one reaper pass.
type SweepStats struct {
	IgnoredCount   int `json:"ignoredCount"`
	WithdrawnCount int `json:"withdrawnCount"`
	FailedCount    int `json:"failedCount"`
}
