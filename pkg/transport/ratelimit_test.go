package transport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLimiterPairWaitSucceedsWithinBudget(t *testing.T) {
	p := newLimiterPair(600, 600) // 10 rps each, generous for a single call
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := p.wait(ctx, uuid.New()); err != nil {
		t.Fatalf("wait() = %v, want nil", err)
	}
}

func TestLimiterPairPerTenantIsolation(t *testing.T) {
	p := newLimiterPair(6000, 60) // per-tenant allows 1 rps, burst small
	tenantA := uuid.New()
	tenantB := uuid.New()

	ctx := context.Background()
	if err := p.wait(ctx, tenantA); err != nil {
		t.Fatalf("first wait for tenant A: %v", err)
	}
	// Tenant B's bucket is independent and should not be drained by A's call.
	limA := p.tenantLimiter(tenantA)
	limB := p.tenantLimiter(tenantB)
	if limA == limB {
		t.Fatal("expected distinct limiters per tenant")
	}
}

func TestLimiterPairWaitRespectsCancellation(t *testing.T) {
	p := newLimiterPair(1, 1) // 1 per 60s, effectively exhausts burst immediately
	tenantID := uuid.New()

	ctx := context.Background()
	_ = p.wait(ctx, tenantID) // drain the single burst token

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.wait(cancelCtx, tenantID); err == nil {
		t.Fatal("expected wait() to fail on an already-cancelled context")
	}
}
