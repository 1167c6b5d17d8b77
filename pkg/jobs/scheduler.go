package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Scheduler polls a Store for due jobs and hands them to a Runner. Also the
// entry point for enqueuing new work with idempotency-key deduplication.
type Scheduler struct {
	store        Store
	runner       *Runner
	pollInterval time.Duration
	batchSize    int
	log          *slog.Logger
}

// SchedulerConfig bounds the scheduler's scan cadence.
type SchedulerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// NewScheduler constructs a Scheduler.
func NewScheduler(store Store, runner *Runner, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	return &Scheduler{store: store, runner: runner, pollInterval: cfg.PollInterval, batchSize: cfg.BatchSize, log: logger}
}

// Run scans for due jobs until ctx is cancelled, dispatching each reserved
// job synchronously within the scan loop, so the next scan waits until every
// job of the current batch has finished. Dispatch itself is bounded by the
// runner's own deadline, so a single slow job can only delay, never wedge,
// the loop.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.store.DuePending(ctx, time.Now(), s.batchSize)
	if err != nil {
		s.log.Error("scanning due jobs", "error", err)
		return
	}
	for _, j := range due {
		reserved, err := s.store.Reserve(ctx, j.ID)
		if err != nil {
			if !errors.Is(err, ErrNotReservable) {
				s.log.Error("reserving job", "job_id", j.ID, "error", err)
			}
			continue
		}
		s.runner.Dispatch(ctx, reserved)
	}
}

// idempotencyReplayWindow bounds how long a terminal job's result is
// returned in place of running the work again for the same key.
const idempotencyReplayWindow = 24 * time.Hour

// Enqueue creates and saves a new pending job, or returns the id of an
// existing job under the same idempotency key: a non-terminal match is
// returned as-is (already in flight), a terminal match within the replay
// window is returned as-is (its Result/LastError stand for this call too),
// and a terminal match outside the window is superseded by a fresh job.
func Enqueue(ctx context.Context, store Store, tenantID *uuid.UUID, function, idempotencyKey string, args json.RawMessage) (*Job, error) {
	if idempotencyKey != "" {
		existing, err := store.GetByIdempotencyKey(ctx, tenantID, idempotencyKey)
		if err == nil {
			if !existing.Status.Terminal() {
				return existing, nil
			}
			if existing.FinishedAt != nil && time.Since(*existing.FinishedAt) < idempotencyReplayWindow {
				return existing, nil
			}
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	now := time.Now()
	j := &Job{
		ID:             uuid.New(),
		TenantID:       tenantID,
		IdempotencyKey: idempotencyKey,
		Function:       function,
		Arguments:      args,
		Status:         StatusPending,
		NextEligibleAt: now,
		CreatedAt:      now,
	}
	if err := store.Save(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Cancel marks a job cancelled. A pending job is cancelled immediately; a
// running job is marked cancelled but its handler is not signalled (its
// context is not cancelled) and runs to completion, after which Dispatch
// sees the cancelled status and discards the handler's outcome — a soft
// cancel, not a hard kill.
func Cancel(ctx context.Context, store Store, id uuid.UUID) error {
	j, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	if j.Status.Terminal() {
		return nil
	}
	j.Status = StatusCancelled
	now := time.Now()
	j.FinishedAt = &now
	return store.Save(ctx, j)
}
