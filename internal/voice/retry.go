package voice

import (
	"time"

	"github.com/google/uuid"
)

// maxAttempts caps dials per (lead, campaign, channel). The third failed
// attempt is the last; a fourth is never scheduled.
const maxAttempts = 3

// busyRetryDelay is the fixed delay after a busy signal. Busy is transient
// within the hour; no-answer implies the recipient is gone for the working
// day, hence the calendar-aware path below.
const busyRetryDelay = 2 * time.Hour

// businessDayHour is the local hour a next-business-day retry fires at.
const businessDayHour = 9

// Attempt is one historical dial for a (lead, campaign) pair.
type Attempt struct {
	LeadID     uuid.UUID
	CampaignID uuid.UUID
	Number     int
	Outcome    Outcome
	At         time.Time
}

// Decision is the retry scheduler's verdict for a completed attempt.
type Decision struct {
	Scheduled     bool       `json:"scheduled"`
	RetryAt       *time.Time `json:"retryAt,omitempty"`
	Reason        string     `json:"reason"`
	AttemptNumber int        `json:"attemptNumber,omitempty"`
}

const (
	ReasonScheduled    = "scheduled"
	ReasonNotRetryable = "not_retryable"
	ReasonMaxRetries   = "max_retries_reached"
)

// Schedule decides whether and when the next dial happens. history holds
// all prior attempts for the (lead, campaign, channel) tuple; outcome is
// the result of the attempt that just completed.
func Schedule(history []Attempt, outcome Outcome, now time.Time) Decision {
	if !outcome.IsRetryable() {
		return Decision{Scheduled: false, Reason: ReasonNotRetryable}
	}

	if len(history) >= maxAttempts {
		return Decision{Scheduled: false, Reason: ReasonMaxRetries}
	}

	retryAt := retryTime(outcome, now)
	return Decision{
		Scheduled:     true,
		RetryAt:       &retryAt,
		Reason:        ReasonScheduled,
		AttemptNumber: len(history) + 1,
	}
}

func retryTime(outcome Outcome, now time.Time) time.Time {
	if outcome == OutcomeBusy {
		return now.Add(busyRetryDelay)
	}
	return nextBusinessDayAt(now, businessDayHour)
}

// nextBusinessDayAt returns the next Mon-Fri after now, at the given local
// hour. A Friday or weekend outcome rolls to Monday.
func nextBusinessDayAt(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
