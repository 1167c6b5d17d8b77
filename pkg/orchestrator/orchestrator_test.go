package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
)

func testConfig() Config {
	return Config{
		Cache: CacheConfig{
			DataFetchTTL: 50 * time.Millisecond,
			OnDemandTTL:  20 * time.Millisecond,
			ScheduledTTL: 200 * time.Millisecond,
		},
		Concurrency: 4,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
	}
}

func TestExecuteImmediateNeverCaches(t *testing.T) {
	o := New(testConfig(), nil)
	var calls int32
	call := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	}
	for i := 0; i < 3; i++ {
		if _, err := o.Execute(context.Background(), "k", StrategyImmediate, PriorityHigh, call); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3 (immediate never caches)", got)
	}
}

func TestExecuteDataFetchCachesResult(t *testing.T) {
	o := New(testConfig(), nil)
	var calls int32
	call := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "cached-value", nil
	}
	for i := 0; i < 3; i++ {
		v, err := o.Execute(context.Background(), "fetch-key", StrategyDataFetch, PriorityMedium, call)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if v != "cached-value" {
			t.Errorf("Execute() = %v, want cached-value", v)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1 (second/third should hit cache)", got)
	}
}

func TestExecuteRetriesTransientUntilMaxAttempts(t *testing.T) {
	o := New(testConfig(), nil)
	var calls int32
	call := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, ledgererr.New(ledgererr.KindTransient, "test", nil)
	}
	_, err := o.Execute(context.Background(), "retry-key", StrategyImmediate, PriorityHigh, call)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != int32(o.cfg.MaxAttempts) {
		t.Errorf("calls = %d, want %d", got, o.cfg.MaxAttempts)
	}
}

func TestExecuteHonorsRetryAfterOverBackoff(t *testing.T) {
	o := New(testConfig(), nil)
	var calls int32
	start := time.Now()
	call := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			rateErr := ledgererr.New(ledgererr.KindRateLimited, "test", nil)
			rateErr.RetryAfter = 30 * time.Millisecond
			return nil, rateErr
		}
		return "ok", nil
	}
	v, err := o.Execute(context.Background(), "rate-limited-key", StrategyImmediate, PriorityHigh, call)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if v != "ok" {
		t.Errorf("Execute() = %v, want ok", v)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 30ms (server Retry-After should win over smaller generic backoff)", elapsed)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2 (one rate-limited retry then success)", got)
	}
}

func TestExecutePermanentNeverRetries(t *testing.T) {
	o := New(testConfig(), nil)
	var calls int32
	call := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, ledgererr.New(ledgererr.KindPermanent, "test", nil)
	}
	_, err := o.Execute(context.Background(), "permanent-key", StrategyImmediate, PriorityLow, call)
	if err == nil {
		t.Fatal("expected permanent error to surface")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent)", got)
	}
}

func TestExecuteDataSyncDeduplicatesConcurrentCalls(t *testing.T) {
	o := New(testConfig(), nil)
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	call := func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			close(started)
			<-release
		}
		return "dedup-value", nil
	}

	results := make(chan any, 2)
	go func() {
		v, _ := o.Execute(context.Background(), "dedup-key", StrategyDataSync, PriorityHigh, call)
		results <- v
	}()
	<-started
	go func() {
		v, _ := o.Execute(context.Background(), "dedup-key", StrategyDataSync, PriorityHigh, call)
		results <- v
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)

	first := <-results
	second := <-results
	if first != "dedup-value" || second != "dedup-value" {
		t.Errorf("both callers should observe the same result, got %v, %v", first, second)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1 (second caller should have deduplicated)", got)
	}
}

func TestClearCache(t *testing.T) {
	o := New(testConfig(), nil)
	call := func(ctx context.Context) (any, error) { return "v", nil }
	o.Execute(context.Background(), "clear-key", StrategyDataFetch, PriorityHigh, call)
	if o.CacheStats("") != 1 {
		t.Fatal("expected one cached entry before clear")
	}
	o.ClearCache("")
	if o.CacheStats("") != 0 {
		t.Error("expected cache to be empty after ClearCache")
	}
}
