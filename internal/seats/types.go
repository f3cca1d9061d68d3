// Package seats owns shared sending resources: their lifecycle status,
// rolling health metrics, and daily capacity.
package seats

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a seat. Transitions are one-directional
// except warmup->active and health-driven override toggling; restricted is
// terminal until a manual reset.
type Status string

const (
	StatusPending              Status = "pending"
	StatusAwaitingVerification Status = "awaiting_verification"
	StatusWarmup               Status = "warmup"
	StatusActive               Status = "active"
	StatusRestricted           Status = "restricted"
	StatusDisconnected         Status = "disconnected"
)

var knownStatuses = map[Status]struct{}{
	StatusPending:              {},
	StatusAwaitingVerification: {},
	StatusWarmup:               {},
	StatusActive:               {},
	StatusRestricted:           {},
	StatusDisconnected:         {},
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	status := Status(raw)
	_, ok := knownStatuses[status]
	return status, ok
}

// OverrideReason records why a daily-limit override is in place. A health
// override may be cleared by a later healthy refresh; a restriction override
// may only be cleared by a manual reset.
type OverrideReason string

const (
	OverrideNone        OverrideReason = ""
	OverrideHealth      OverrideReason = "health"
	OverrideRestriction OverrideReason = "restriction"
)

// Seat is one connected sending account with its own capacity and health.
type Seat struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	Channel            string
	Status             Status
	ActivatedAt        *time.Time
	DailyLimitOverride *int
	OverrideReason     OverrideReason
	LastSentAt         *time.Time
}

// WindowMetrics are raw connection-request counters for the trailing
// windows a refresh evaluates.
type WindowMetrics struct {
	Requested7d  int
	Accepted7d   int
	Requested30d int
	Accepted30d  int
	PendingCount int
}

// Severity grades a health alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one finding from a health refresh.
type Alert struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// HealthReport is the outcome of refreshing a single seat. Accept rates are
// nil when the trailing window had no requests; an unknown rate is never
// treated as unhealthy.
type HealthReport struct {
	SeatID        uuid.UUID  `json:"seatId"`
	AcceptRate7d  *float64   `json:"acceptRate7d"`
	AcceptRate30d *float64   `json:"acceptRate30d"`
	PendingCount  int        `json:"pendingCount"`
	DailyLimit    int        `json:"dailyLimit"`
	Alerts        []Alert    `json:"alerts"`
	RefreshedAt   time.Time  `json:"refreshedAt"`
}
