package seats

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func activeSeat(daysActive int, now time.Time) Seat {
	activated := now.Add(-time.Duration(daysActive-1)*24*time.Hour - time.Hour)
	return Seat{
		ID:          uuid.New(),
		Status:      StatusActive,
		ActivatedAt: &activated,
	}
}

func TestDailyLimitWarmupRamp(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		daysActive int
		want       int
	}{
		{1, 5}, {2, 5}, {3, 5},
		{4, 10}, {7, 10},
		{8, 15}, {11, 15},
		{12, 20}, {40, 20},
	}

	for _, tc := range cases {
		seat := activeSeat(tc.daysActive, now)
		if got := DailyLimit(seat, now); got != tc.want {
			t.Errorf("day %d: DailyLimit = %d, want %d", tc.daysActive, got, tc.want)
		}
	}
}

func TestDailyLimitOverrideWinsEitherDirection(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	lower := 3
	seat := activeSeat(30, now)
	seat.DailyLimitOverride = &lower
	if got := DailyLimit(seat, now); got != 3 {
		t.Errorf("lower override: DailyLimit = %d, want 3", got)
	}

	higher := 50
	seat.DailyLimitOverride = &higher
	if got := DailyLimit(seat, now); got != 50 {
		t.Errorf("higher override: DailyLimit = %d, want 50", got)
	}
}

func TestDailyLimitZeroStates(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	restricted := activeSeat(30, now)
	restricted.Status = StatusRestricted
	if got := DailyLimit(restricted, now); got != 0 {
		t.Errorf("restricted: DailyLimit = %d, want 0", got)
	}

	pending := Seat{Status: StatusPending}
	if got := DailyLimit(pending, now); got != 0 {
		t.Errorf("pending: DailyLimit = %d, want 0", got)
	}

	noActivation := Seat{Status: StatusActive}
	if got := DailyLimit(noActivation, now); got != 0 {
		t.Errorf("no activation timestamp: DailyLimit = %d, want 0", got)
	}
}

func TestDailyLimitNeverExceedsWarmupBucketWithoutOverride(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for days := 1; days <= 30; days++ {
		seat := activeSeat(days, now)
		if got, bucket := DailyLimit(seat, now), warmupBucket(days); got > bucket {
			t.Errorf("day %d: DailyLimit %d exceeds warm-up bucket %d", days, got, bucket)
		}
	}
}
