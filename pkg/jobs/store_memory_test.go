package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestJob(status Status) *Job {
	now := time.Now()
	return &Job{
		ID:             uuid.New(),
		Function:       "noop",
		Status:         status,
		NextEligibleAt: now,
		CreatedAt:      now,
	}
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusPending)

	if err := store.Save(ctx, j); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != j.ID {
		t.Errorf("got id %s, want %s", got.ID, j.ID)
	}
}

func TestMemoryStoreGetReturnsClone(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusPending)
	if err := store.Save(ctx, j); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _ := store.Get(ctx, j.ID)
	got.Status = StatusFailed

	reloaded, _ := store.Get(ctx, j.ID)
	if reloaded.Status != StatusPending {
		t.Errorf("mutating a returned job leaked into the store: status = %s", reloaded.Status)
	}
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreIdempotencyKeyLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenantID := uuid.New()
	j := newTestJob(StatusPending)
	j.TenantID = &tenantID
	j.IdempotencyKey = "replay-1"
	if err := store.Save(ctx, j); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.GetByIdempotencyKey(ctx, &tenantID, "replay-1")
	if err != nil {
		t.Fatalf("GetByIdempotencyKey: %v", err)
	}
	if got.ID != j.ID {
		t.Errorf("got id %s, want %s", got.ID, j.ID)
	}

	otherTenant := uuid.New()
	if _, err := store.GetByIdempotencyKey(ctx, &otherTenant, "replay-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound scoped to a different tenant, got %v", err)
	}
}

func TestMemoryStoreReserveTransitionsPendingToRunning(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusPending)
	_ = store.Save(ctx, j)

	reserved, err := store.Reserve(ctx, j.ID)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if reserved.Status != StatusRunning {
		t.Errorf("status = %s, want running", reserved.Status)
	}
	if reserved.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
}

func TestMemoryStoreReserveRejectsNonPending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusRunning)
	_ = store.Save(ctx, j)

	if _, err := store.Reserve(ctx, j.ID); !errors.Is(err, ErrNotReservable) {
		t.Errorf("expected ErrNotReservable, got %v", err)
	}
}

func TestMemoryStoreDuePendingFiltersByTime(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	due := newTestJob(StatusPending)
	due.NextEligibleAt = now.Add(-time.Minute)
	notDue := newTestJob(StatusPending)
	notDue.NextEligibleAt = now.Add(time.Hour)
	running := newTestJob(StatusRunning)
	running.NextEligibleAt = now.Add(-time.Minute)

	for _, j := range []*Job{due, notDue, running} {
		_ = store.Save(ctx, j)
	}

	got, err := store.DuePending(ctx, now, 10)
	if err != nil {
		t.Fatalf("DuePending: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Errorf("DuePending returned %d jobs, want exactly the one due pending job", len(got))
	}
}

func TestMemoryStoreDuePendingRespectsLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	for i := 0; i < 5; i++ {
		j := newTestJob(StatusPending)
		j.NextEligibleAt = now.Add(-time.Duration(i) * time.Minute)
		_ = store.Save(ctx, j)
	}

	got, err := store.DuePending(ctx, now, 2)
	if err != nil {
		t.Fatalf("DuePending: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d jobs, want 2", len(got))
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusPending)
	_ = store.Save(ctx, j)

	if err := store.Delete(ctx, j.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, j.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreListByFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenantID := uuid.New()
	match := newTestJob(StatusPending)
	match.TenantID = &tenantID
	other := newTestJob(StatusPending)
	_ = store.Save(ctx, match)
	_ = store.Save(ctx, other)

	got, err := store.ListByFilter(ctx, Filter{TenantID: &tenantID})
	if err != nil {
		t.Fatalf("ListByFilter: %v", err)
	}
	if len(got) != 1 || got[0].ID != match.ID {
		t.Errorf("ListByFilter returned %d jobs, want exactly the tenant-scoped one", len(got))
	}
}
