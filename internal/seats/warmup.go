package seats

import "time"

// steadyStateLimit is the daily send capacity of a fully warmed-up seat.
const steadyStateLimit = 20

// warmupBucket returns the ramp capacity for the given day of warm-up
// (1-based, inclusive).
func warmupBucket(daysActive int) int {
	switch {
	case daysActive <= 0:
		return 0
	case daysActive <= 3:
		return 5
	case daysActive <= 7:
		return 10
	case daysActive <= 11:
		return 15
	default:
		return steadyStateLimit
	}
}

// DailyLimit derives the seat's current daily capacity:
// an explicit override wins in either direction; a restricted or
// not-yet-activated seat has zero capacity; otherwise the warm-up ramp
// applies until day 12, then the steady-state limit.
func DailyLimit(seat Seat, now time.Time) int {
	if seat.DailyLimitOverride != nil {
		return *seat.DailyLimitOverride
	}

	if seat.Status == StatusRestricted {
		return 0
	}

	if seat.ActivatedAt == nil || seat.Status != StatusActive && seat.Status != StatusWarmup {
		return 0
	}

	daysActive := int(now.Sub(*seat.ActivatedAt).Hours()/24) + 1
	return warmupBucket(daysActive)
}
