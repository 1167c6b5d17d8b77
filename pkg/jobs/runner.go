package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/data-steve/rowcol-sub001/internal/telemetry"
	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
)

// Handler executes one job's work, returning a JSON result to persist. A
// returned error is classified via ledgererr to decide whether the job is
// retried or failed permanently; a non-nil result returned alongside the
// error is persisted too.
type Handler func(ctx context.Context, j *Job) (json.RawMessage, error)

// Runner dispatches reserved jobs to registered handlers.
type Runner struct {
	store      Store
	handlers   map[string]Handler
	deadline   time.Duration
	maxAttempts int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        *slog.Logger
}

// RunnerConfig bounds a Runner's retry and deadline behavior.
type RunnerConfig struct {
	Deadline    time.Duration // per-job overall wall clock budget, JOBS_DEFAULT_DEADLINE_MIN
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRunner constructs a Runner with no handlers registered yet.
func NewRunner(store Store, cfg RunnerConfig, logger *slog.Logger) *Runner {
	return &Runner{
		store:       store,
		handlers:    make(map[string]Handler),
		deadline:    cfg.Deadline,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		log:         logger,
	}
}

// Register binds a function name to its handler. Dispatch fails a job with
// a permanent error if its Function has no registered handler.
func (r *Runner) Register(function string, h Handler) {
	r.handlers[function] = h
}

// Dispatch runs one reserved (StatusRunning) job to completion, bounded by
// the runner's deadline, and persists its terminal or retry-pending state.
func (r *Runner) Dispatch(ctx context.Context, j *Job) {
	runCtx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	h, ok := r.handlers[j.Function]
	if !ok {
		r.fail(ctx, j, ledgererr.New(ledgererr.KindPermanent, "jobs.Dispatch", fmt.Errorf("no handler registered for function %q", j.Function)))
		return
	}

	result, err := h(runCtx, j)

	if current, cErr := r.store.Get(ctx, j.ID); cErr == nil && current.Status == StatusCancelled {
		return
	}

	if err != nil {
		if result != nil {
			j.Result = result
		}
		r.classify(ctx, j, err)
		return
	}
	r.succeed(ctx, j, result)
}

func (r *Runner) succeed(ctx context.Context, j *Job, result json.RawMessage) {
	now := time.Now()
	j.Status = StatusSucceeded
	j.FinishedAt = &now
	j.Result = result
	j.LastError = ""
	if err := r.store.Save(ctx, j); err != nil {
		r.log.Error("saving succeeded job", "job_id", j.ID, "error", err)
	}
	telemetry.JobStateTransitionsTotal.WithLabelValues("running", "succeeded").Inc()
}

func (r *Runner) fail(ctx context.Context, j *Job, err error) {
	now := time.Now()
	j.Status = StatusFailed
	j.FinishedAt = &now
	j.LastError = err.Error()
	if saveErr := r.store.Save(ctx, j); saveErr != nil {
		r.log.Error("saving failed job", "job_id", j.ID, "error", saveErr)
	}
	telemetry.JobStateTransitionsTotal.WithLabelValues("running", "failed").Inc()
}

// classify decides, on a handler error, whether the job goes back to
// pending with backoff (transient, rate-limited, token-invalid, and still
// under MaxAttempts) or terminates as failed.
func (r *Runner) classify(ctx context.Context, j *Job, err error) {
	kind, _ := ledgererr.KindOf(err)
	j.Attempts++
	if ledgererr.Retryable(kind) && j.Attempts < r.maxAttempts {
		j.Status = StatusPending
		j.LastError = err.Error()
		j.NextEligibleAt = time.Now().Add(backoffDelay(r.baseDelay, r.maxDelay, j.Attempts))
		if saveErr := r.store.Save(ctx, j); saveErr != nil {
			r.log.Error("saving retry-pending job", "job_id", j.ID, "error", saveErr)
		}
		telemetry.JobStateTransitionsTotal.WithLabelValues("running", "pending").Inc()
		return
	}
	r.fail(ctx, j, err)
}

// backoffDelay is the same exponential-with-jitter shape the orchestrator
// uses for transport retries, scaled to job-level minutes instead of
// request-level seconds.
func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d <= 0 || d > maxDelay {
		d = maxDelay
	}
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(d) * jitter)
}
