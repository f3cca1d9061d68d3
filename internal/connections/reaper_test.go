package connections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	requests map[uuid.UUID]*Request
}

func newFakeConnStore() *fakeStore {
	return &fakeStore{requests: make(map[uuid.UUID]*Request)}
}

func (f *fakeStore) add(req Request) uuid.UUID {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	copied := req
	f.requests[req.ID] = &copied
	return req.ID
}

func (f *fakeStore) ListStale(_ context.Context, olderThan time.Time) ([]Request, error) {
	stale := make([]Request, 0)
	for _, req := range f.requests {
		if !req.RequestedAt.After(olderThan) && req.Status != StatusAccepted && req.Status != StatusDeclined && req.Status != StatusWithdrawn {
			stale = append(stale, *req)
		}
	}
	// Oldest first, as the repository guarantees.
	for i := range stale {
		for j := i + 1; j < len(stale); j++ {
			if stale[j].RequestedAt.Before(stale[i].RequestedAt) {
				stale[i], stale[j] = stale[j], stale[i]
			}
		}
	}
	return stale, nil
}

func (f *fakeStore) MarkIgnored(_ context.Context, requestID uuid.UUID, at time.Time) error {
	req := f.requests[requestID]
	if req.Status == StatusPending {
		req.Status = StatusIgnored
		req.RespondedAt = &at
	}
	return nil
}

func (f *fakeStore) MarkWithdrawn(_ context.Context, requestID uuid.UUID, at time.Time) error {
	req := f.requests[requestID]
	if req.Status == StatusPending || req.Status == StatusIgnored {
		req.Status = StatusWithdrawn
		if req.RespondedAt == nil {
			req.RespondedAt = &at
		}
	}
	return nil
}

type fakeWithdrawer struct {
	calls []string
	err   error
}

func (f *fakeWithdrawer) Withdraw(_ context.Context, _ string, providerRequestID string) error {
	f.calls = append(f.calls, providerRequestID)
	return f.err
}

func testReaper(store Store, provider Withdrawer, perSeatCap int) *Reaper {
	return NewReaper(store, provider, perSeatCap, 1000, logger.New("development"))
}

func pendingRequest(seatID uuid.UUID, ageDays int, now time.Time, providerID string) Request {
	req := Request{
		SeatID:      seatID,
		TenantID:    uuid.New(),
		LeadID:      uuid.New(),
		Status:      StatusPending,
		RequestedAt: now.Add(-time.Duration(ageDays) * 24 * time.Hour),
	}
	if providerID != "" {
		req.ProviderRequestID = &providerID
	}
	return req
}

func TestSweepAgeThresholds(t *testing.T) {
	// Scenario: day 10 untouched, day 15 ignored, day 31 withdrawn.
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	store := newFakeConnStore()
	seatID := uuid.New()

	fresh := store.add(pendingRequest(seatID, 10, now, "pr-1"))
	stale14 := store.add(pendingRequest(seatID, 15, now, "pr-2"))
	stale30 := store.add(pendingRequest(seatID, 31, now, "pr-3"))

	provider := &fakeWithdrawer{}
	stats, err := testReaper(store, provider, 10).Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if store.requests[fresh].Status != StatusPending {
		t.Error("10-day request should be untouched")
	}
	if store.requests[stale14].Status != StatusIgnored {
		t.Errorf("15-day request = %s, want ignored", store.requests[stale14].Status)
	}
	if store.requests[stale14].RespondedAt == nil {
		t.Error("ignored request should have responded_at set")
	}
	if store.requests[stale30].Status != StatusWithdrawn {
		t.Errorf("31-day request = %s, want withdrawn", store.requests[stale30].Status)
	}
	if stats.IgnoredCount != 1 || stats.WithdrawnCount != 1 {
		t.Errorf("stats = %+v, want 1 ignored / 1 withdrawn", stats)
	}
	if len(provider.calls) != 1 || provider.calls[0] != "pr-3" {
		t.Errorf("provider calls = %v, want [pr-3]", provider.calls)
	}
}

func TestSweepNoPendingOlderThan30DaysAfterPass(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	store := newFakeConnStore()
	seatID := uuid.New()

	for age := 30; age <= 45; age += 5 {
		store.add(pendingRequest(seatID, age, now, ""))
	}

	if _, err := testReaper(store, &fakeWithdrawer{}, 100).Sweep(context.Background(), now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	for id, req := range store.requests {
		if req.Status == StatusPending {
			t.Errorf("request %s still pending after sweep at age %v", id, now.Sub(req.RequestedAt))
		}
	}
}

func TestSweepWithdrawsAlreadyIgnoredRequests(t *testing.T) {
	// The 30-day rule keys off requested_at, so a request the 14-day rule
	// already marked ignored still reaches withdrawn.
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	store := newFakeConnStore()

	req := pendingRequest(uuid.New(), 31, now, "pr-9")
	req.Status = StatusIgnored
	earlier := now.Add(-10 * 24 * time.Hour)
	req.RespondedAt = &earlier
	id := store.add(req)

	stats, err := testReaper(store, &fakeWithdrawer{}, 10).Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if store.requests[id].Status != StatusWithdrawn {
		t.Errorf("status = %s, want withdrawn", store.requests[id].Status)
	}
	if stats.WithdrawnCount != 1 || stats.IgnoredCount != 0 {
		t.Errorf("stats = %+v, want only the withdrawal", stats)
	}
}

func TestSweepWithoutProviderIDWithdrawsLocally(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	store := newFakeConnStore()
	id := store.add(pendingRequest(uuid.New(), 35, now, ""))

	provider := &fakeWithdrawer{}
	if _, err := testReaper(store, provider, 10).Sweep(context.Background(), now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if store.requests[id].Status != StatusWithdrawn {
		t.Error("request without a provider ID should be withdrawn locally")
	}
	if len(provider.calls) != 0 {
		t.Errorf("no provider calls expected, got %v", provider.calls)
	}
}

func TestSweepProviderFailureLeavesRequestForNextSweep(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	store := newFakeConnStore()
	id := store.add(pendingRequest(uuid.New(), 35, now, "pr-4"))

	provider := &fakeWithdrawer{err: errors.New("provider down")}
	stats, err := testReaper(store, provider, 10).Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep must not abort on provider failure, got %v", err)
	}

	if store.requests[id].Status != StatusPending {
		t.Errorf("status = %s, want pending until a later sweep succeeds", store.requests[id].Status)
	}
	if stats.FailedCount != 1 || stats.WithdrawnCount != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSweepPerSeatWithdrawalCapOldestFirst(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	store := newFakeConnStore()
	seatID := uuid.New()

	oldest := store.add(pendingRequest(seatID, 40, now, "pr-a"))
	middle := store.add(pendingRequest(seatID, 36, now, "pr-b"))
	newest := store.add(pendingRequest(seatID, 32, now, "pr-c"))

	provider := &fakeWithdrawer{}
	stats, err := testReaper(store, provider, 2).Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if stats.WithdrawnCount != 2 {
		t.Fatalf("WithdrawnCount = %d, want 2", stats.WithdrawnCount)
	}
	if store.requests[oldest].Status != StatusWithdrawn || store.requests[middle].Status != StatusWithdrawn {
		t.Error("the two oldest requests should be withdrawn")
	}
	if store.requests[newest].Status != StatusPending {
		t.Error("the newest request should roll to the next sweep")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	store := newFakeConnStore()
	store.add(pendingRequest(uuid.New(), 15, now, "pr-5"))
	store.add(pendingRequest(uuid.New(), 31, now, "pr-6"))

	reaper := testReaper(store, &fakeWithdrawer{}, 10)
	if _, err := reaper.Sweep(context.Background(), now); err != nil {
		t.Fatalf("first sweep: %v", err)
	}

	stats, err := reaper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if stats.IgnoredCount != 0 || stats.WithdrawnCount != 0 {
		t.Errorf("second sweep should be a no-op, got %+v", stats)
	}
}
