// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"github.com/Keiracom/Agency-OS-sub001/platform/events"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Campaign Domain Events
// =============================================================================

// CampaignActivated is published when a campaign starts and its sequences
// have been planned.
type CampaignActivated struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	TenantID   uuid.UUID `json:"tenantId"`
	LeadCount  int       `json:"leadCount"`
}

func (e CampaignActivated) EventName() string { return "campaigns.activated" }

// TouchDispatched is published after a touch has been handed to a channel
// dispatcher.
type TouchDispatched struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	LeadID     uuid.UUID `json:"leadId"`
	TenantID   uuid.UUID `json:"tenantId"`
	Channel    string    `json:"channel"`
	ContentKey string    `json:"contentKey"`
	Day        int       `json:"day"`
}

func (e TouchDispatched) EventName() string { return "campaigns.touch.dispatched" }

// TouchDeferred is published when the dispatch gate defers a touch, for
// example because the seat's daily quota is exhausted.
type TouchDeferred struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	LeadID     uuid.UUID `json:"leadId"`
	TenantID   uuid.UUID `json:"tenantId"`
	Channel    string    `json:"channel"`
	RetryAt    time.Time `json:"retryAt"`
	Reason     string    `json:"reason"`
}

func (e TouchDeferred) EventName() string { return "campaigns.touch.deferred" }

// SequenceStopped is published when an active sequence is halted, either by
// a reply or by completion.
type SequenceStopped struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	LeadID     uuid.UUID `json:"leadId"`
	TenantID   uuid.UUID `json:"tenantId"`
	Reason     string    `json:"reason"`
}

func (e SequenceStopped) EventName() string { return "campaigns.sequence.stopped" }

// =============================================================================
// Reply Domain Events
// =============================================================================

// ReplyClassified is published after the state machine has processed an
// inbound reply.
type ReplyClassified struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	TenantID   uuid.UUID `json:"tenantId"`
	Channel    string    `json:"channel"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
}

func (e ReplyClassified) EventName() string { return "replies.classified" }

// LeadConverted is published when a reply books a meeting and the lead
// reaches converted.
type LeadConverted struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
}

func (e LeadConverted) EventName() string { return "leads.converted" }

// LeadSuppressed is published when a lead unsubscribes and is added to the
// global do-not-contact set.
type LeadSuppressed struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Channel  string    `json:"channel"`
	Address  string    `json:"address"`
}

func (e LeadSuppressed) EventName() string { return "leads.suppressed" }

// =============================================================================
// Seat Domain Events
// =============================================================================

// SeatHealthDegraded is published when a health refresh emits a warning or
// critical alert for a seat.
type SeatHealthDegraded struct {
	BaseEvent
	SeatID   uuid.UUID `json:"seatId"`
	TenantID uuid.UUID `json:"tenantId"`
	Severity string    `json:"severity"`
	Reason   string    `json:"reason"`
}

func (e SeatHealthDegraded) EventName() string { return "seats.health.degraded" }

// SeatRestricted is published when an explicit provider restriction signal
// lands on a seat.
type SeatRestricted struct {
	BaseEvent
	SeatID   uuid.UUID `json:"seatId"`
	TenantID uuid.UUID `json:"tenantId"`
}

func (e SeatRestricted) EventName() string { return "seats.restricted" }
