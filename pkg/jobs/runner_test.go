package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRunnerConfig() RunnerConfig {
	return RunnerConfig{Deadline: time.Second, MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDispatchSucceeds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusRunning)
	_ = store.Save(ctx, j)

	r := NewRunner(store, testRunnerConfig(), testLogger())
	r.Register("noop", func(ctx context.Context, job *Job) (json.RawMessage, error) {
		return json.RawMessage(`{"done":true}`), nil
	})
	r.Dispatch(ctx, j)

	got, _ := store.Get(ctx, j.ID)
	if got.Status != StatusSucceeded {
		t.Errorf("status = %s, want succeeded", got.Status)
	}
	if got.FinishedAt == nil {
		t.Error("expected FinishedAt to be set")
	}
}

func TestDispatchUnregisteredFunctionFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusRunning)
	j.Function = "does-not-exist"
	_ = store.Save(ctx, j)

	r := NewRunner(store, testRunnerConfig(), testLogger())
	r.Dispatch(ctx, j)

	got, _ := store.Get(ctx, j.ID)
	if got.Status != StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
}

func TestDispatchTransientErrorRetriesWithBackoff(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusRunning)
	_ = store.Save(ctx, j)

	r := NewRunner(store, testRunnerConfig(), testLogger())
	r.Register("noop", func(ctx context.Context, job *Job) (json.RawMessage, error) {
		return nil, ledgererr.New(ledgererr.KindTransient, "test", errors.New("boom"))
	})
	r.Dispatch(ctx, j)

	got, _ := store.Get(ctx, j.ID)
	if got.Status != StatusPending {
		t.Errorf("status = %s, want pending (retry scheduled)", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	if !got.NextEligibleAt.After(time.Now()) {
		t.Error("expected NextEligibleAt to be pushed into the future")
	}
}

func TestDispatchPermanentErrorFailsImmediately(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusRunning)
	_ = store.Save(ctx, j)

	r := NewRunner(store, testRunnerConfig(), testLogger())
	r.Register("noop", func(ctx context.Context, job *Job) (json.RawMessage, error) {
		return nil, ledgererr.New(ledgererr.KindPermanent, "test", errors.New("unrecoverable"))
	})
	r.Dispatch(ctx, j)

	got, _ := store.Get(ctx, j.ID)
	if got.Status != StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
}

func TestDispatchTransientErrorFailsAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusRunning)
	j.Attempts = 2
	_ = store.Save(ctx, j)

	r := NewRunner(store, testRunnerConfig(), testLogger())
	r.Register("noop", func(ctx context.Context, job *Job) (json.RawMessage, error) {
		return nil, ledgererr.New(ledgererr.KindTransient, "test", errors.New("boom"))
	})
	r.Dispatch(ctx, j)

	got, _ := store.Get(ctx, j.ID)
	if got.Status != StatusFailed {
		t.Errorf("status = %s, want failed once MaxAttempts is exhausted", got.Status)
	}
}

func TestDispatchSkipsSaveWhenCancelledMidRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j := newTestJob(StatusRunning)
	_ = store.Save(ctx, j)

	r := NewRunner(store, testRunnerConfig(), testLogger())
	r.Register("noop", func(ctx context.Context, job *Job) (json.RawMessage, error) {
		current, _ := store.Get(ctx, job.ID)
		current.Status = StatusCancelled
		finishedAt := time.Now()
		current.FinishedAt = &finishedAt
		_ = store.Save(ctx, current)
		return json.RawMessage(`{}`), nil
	})
	r.Dispatch(ctx, j)

	got, _ := store.Get(ctx, j.ID)
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled to stick despite handler success", got.Status)
	}
}

func TestBackoffDelayCapsAtMax(t *testing.T) {
	d := backoffDelay(time.Second, 5*time.Second, 10)
	if d > 5*time.Second {
		t.Errorf("backoffDelay = %v, want capped at 5s", d)
	}
}
