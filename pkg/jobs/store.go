package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get, and by MemoryStore.Reserve, when no job
// exists for the given id; RedisStore.Reserve reports a missing job as
// ErrNotReservable.
var ErrNotFound = errors.New("jobs: not found")

// ErrNotReservable is returned by Reserve when the job is no longer pending
// (another worker already claimed it, or it was cancelled first).
var ErrNotReservable = errors.New("jobs: not reservable")

// Store is the pluggable storage provider §4.8 requires: in-memory for
// development, a Redis-class store for production. Both implementations
// must make Reserve an atomic compare-and-set (pending → running) so two
// schedulers racing on the same due job never both dispatch it.
type Store interface {
	Save(ctx context.Context, j *Job) error
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	GetByIdempotencyKey(ctx context.Context, tenantID *uuid.UUID, key string) (*Job, error)
	ListByFilter(ctx context.Context, f Filter) ([]*Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Reserve atomically transitions one pending job to running, returning
	// ErrNotReservable if it was not pending at the time of the attempt.
	Reserve(ctx context.Context, id uuid.UUID) (*Job, error)
	// DuePending returns up to limit pending jobs whose NextEligibleAt has
	// passed, for the scheduler's scan.
	DuePending(ctx context.Context, now time.Time, limit int) ([]*Job, error)
}
