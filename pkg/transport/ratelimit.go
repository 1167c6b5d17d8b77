package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// limiterPair holds the process-wide global bucket and a lazily-created
// per-tenant bucket, both stricter than the global one per the spec's
// "global and per-tenant quotas" requirement.
type limiterPair struct {
	mu         sync.Mutex
	global     *rate.Limiter
	perTenant  map[uuid.UUID]*rate.Limiter
	tenantRPM  int
}

func newLimiterPair(globalRPM, perTenantRPM int) *limiterPair {
	return &limiterPair{
		global:    rate.NewLimiter(rpmToLimit(globalRPM), burstFor(globalRPM)),
		perTenant: make(map[uuid.UUID]*rate.Limiter),
		tenantRPM: perTenantRPM,
	}
}

// wait blocks until both the global and the tenant's bucket yield a permit,
// or ctx is done first.
func (p *limiterPair) wait(ctx context.Context, tenantID uuid.UUID) error {
	if err := p.global.Wait(ctx); err != nil {
		return err
	}
	return p.tenantLimiter(tenantID).Wait(ctx)
}

func (p *limiterPair) tenantLimiter(tenantID uuid.UUID) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.perTenant[tenantID]
	if !ok {
		l = rate.NewLimiter(rpmToLimit(p.tenantRPM), burstFor(p.tenantRPM))
		p.perTenant[tenantID] = l
	}
	return l
}

func rpmToLimit(rpm int) rate.Limit {
	if rpm <= 0 {
		rpm = 1
	}
	return rate.Limit(float64(rpm) / 60.0)
}

// burstFor allows a small burst so a quiet tenant doesn't stall on the very
// first request of a window; capped so it never exceeds a few seconds worth
// of budget.
func burstFor(rpm int) int {
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	return burst
}
