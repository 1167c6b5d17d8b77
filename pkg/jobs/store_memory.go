package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the development-mode job store: everything lives in a map
// guarded by one mutex. Not durable across restarts.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
	idem map[string]uuid.UUID
}

// NewMemoryStore constructs an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[uuid.UUID]*Job),
		idem: make(map[string]uuid.UUID),
	}
}

func cloneJob(j *Job) *Job {
	cp := *j
	return &cp
}

func (m *MemoryStore) Save(ctx context.Context, j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = cloneJob(j)
	if j.IdempotencyKey != "" {
		m.idem[idempotencyScope(j.TenantID, j.IdempotencyKey)] = j.ID
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *MemoryStore) GetByIdempotencyKey(ctx context.Context, tenantID *uuid.UUID, key string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.idem[idempotencyScope(tenantID, key)]
	if !ok {
		return nil, ErrNotFound
	}
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *MemoryStore) ListByFilter(ctx context.Context, f Filter) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Job
	for _, j := range m.jobs {
		if f.matches(j) {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *MemoryStore) Reserve(ctx context.Context, id uuid.UUID) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if j.Status != StatusPending {
		return nil, ErrNotReservable
	}
	now := time.Now()
	j.Status = StatusRunning
	j.StartedAt = &now
	return cloneJob(j), nil
}

func (m *MemoryStore) DuePending(ctx context.Context, now time.Time, limit int) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Job
	for _, j := range m.jobs {
		if j.Status == StatusPending && !j.NextEligibleAt.After(now) {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].NextEligibleAt.Before(out[k].NextEligibleAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
