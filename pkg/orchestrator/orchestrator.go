// Package orchestrator decides, for each logical call against the external
// ledger, how aggressively to attempt it and whether a cached result
// suffices. It sits between the per-tenant sync service and the rate-limited
// transport: every raw call is bound by its caller and handed to Execute.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
)

// Call is a bound raw call against C2/C1, already scoped to a tenant and
// operation by its caller.
type Call func(ctx context.Context) (any, error)

// Config bounds retry behavior, shared across all strategies.
type Config struct {
	Cache       CacheConfig
	Concurrency int
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Orchestrator implements the Sync Orchestrator (C3).
type Orchestrator struct {
	cache *cache
	cfg   Config
	gate  *priorityGate
	sf    singleflight.Group
	log   *slog.Logger
}

// New constructs an Orchestrator.
func New(cfg Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cache: newCache(),
		cfg:   cfg,
		gate:  newPriorityGate(cfg.Concurrency),
		log:   logger,
	}
}

// Execute runs call under the given strategy and priority, deduplicating
// identical in-flight calls and serving/populating the cache as the
// strategy dictates. cacheKey must already incorporate tenant, operation
// name, and an args hash — callers build it (see syncservice).
func (o *Orchestrator) Execute(ctx context.Context, cacheKey string, strategy Strategy, priority Priority, call Call) (any, error) {
	if strategy.cached() {
		if val, err, fresh, stale := o.cache.get(cacheKey, time.Now()); fresh {
			return val, err
		} else if stale {
			o.refreshInBackground(cacheKey, strategy, priority, call)
			return val, err
		}
	}

	if strategy.deduplicated() {
		v, err, _ := o.sf.Do(cacheKey, func() (any, error) {
			return o.callWithRetry(ctx, priority, call)
		})
		if strategy.cached() {
			ttl, stale := strategy.ttl(o.cfg.Cache)
			o.cache.set(cacheKey, v, err, ttl, stale)
		}
		return v, err
	}

	return o.callWithRetry(ctx, priority, call)
}

// refreshInBackground re-runs a stale cache entry's call once, using
// singleflight so multiple stale hits on the same key only trigger one
// refresh. It runs detached from the originating request's context since
// that request has already returned its stale value to its caller.
func (o *Orchestrator) refreshInBackground(cacheKey string, strategy Strategy, priority Priority, call Call) {
	go func() {
		ttl, stale := strategy.ttl(o.cfg.Cache)
		bgCtx, cancel := context.WithTimeout(context.Background(), o.cfg.MaxDelay*time.Duration(o.cfg.MaxAttempts))
		defer cancel()
		v, err, _ := o.sf.Do("refresh:"+cacheKey, func() (any, error) {
			return o.callWithRetry(bgCtx, priority, call)
		})
		if err == nil {
			o.cache.set(cacheKey, v, nil, ttl, stale)
		}
	}()
}

// callWithRetry applies the retry policy over Transport's classifications:
// transient failures retry up to MaxAttempts with exponential backoff,
// rate-limited failures wait and retry without consuming the retry budget,
// and anything else (token-invalid after Transport's own forced refresh,
// permanent, validation, cancelled) surfaces immediately.
func (o *Orchestrator) callWithRetry(ctx context.Context, priority Priority, call Call) (any, error) {
	attempt := 0
	rateLimitStep := 0
	for {
		if err := o.gate.acquire(ctx, priority); err != nil {
			return nil, ledgererr.New(ledgererr.KindCancelled, "orchestrator.Execute", err)
		}
		val, err := call(ctx)
		o.gate.release()
		if err == nil {
			return val, nil
		}

		kind, _ := ledgererr.KindOf(err)
		switch kind {
		case ledgererr.KindRateLimited:
			rateLimitStep++
			delay := backoffDelay(o.cfg.BaseDelay, o.cfg.MaxDelay, rateLimitStep)
			var lerr *ledgererr.Error
			if errors.As(err, &lerr) && lerr.RetryAfter > delay {
				delay = lerr.RetryAfter
			}
			if !o.sleep(ctx, delay) {
				return nil, ledgererr.New(ledgererr.KindCancelled, "orchestrator.Execute", ctx.Err())
			}
		case ledgererr.KindTransient:
			attempt++
			if attempt >= o.cfg.MaxAttempts {
				return nil, err
			}
			if !o.sleep(ctx, backoffDelay(o.cfg.BaseDelay, o.cfg.MaxDelay, attempt)) {
				return nil, ledgererr.New(ledgererr.KindCancelled, "orchestrator.Execute", ctx.Err())
			}
		default:
			return nil, err
		}
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// backoffDelay implements the exponential backoff with base 1s, multiplier
// 2, jitter uniform on [0.5, 1.0), capped at maxDelay.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base * time.Duration(int64(1)<<uint(attempt-1))
	if d > max || d <= 0 {
		d = max
	}
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(d) * jitter)
}

// CacheStats returns the number of entries currently cached. scope is
// accepted for interface symmetry with ClearCache but this implementation
// has a single process-wide cache partitioned by key prefix, not by a
// separate namespace per scope.
func (o *Orchestrator) CacheStats(scope string) int {
	return o.cache.stats()
}

// ClearCache drops cache entries whose key has the given prefix ("" clears
// everything), satisfying the cache-control surface's clear-cache(scope, operation?).
func (o *Orchestrator) ClearCache(prefix string) {
	o.cache.clear(prefix)
}
