package jobs

import (
	"testing"

	"github.com/google/uuid"
)

func TestFilterMatchesTenant(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	j := &Job{TenantID: &tenantA}

	if !(Filter{TenantID: &tenantA}).matches(j) {
		t.Error("expected filter to match same tenant")
	}
	if (Filter{TenantID: &tenantB}).matches(j) {
		t.Error("expected filter not to match different tenant")
	}
}

func TestFilterMatchesNilTenantJob(t *testing.T) {
	tenantA := uuid.New()
	j := &Job{TenantID: nil}
	if (Filter{TenantID: &tenantA}).matches(j) {
		t.Error("expected filter requiring a tenant not to match a system-wide job")
	}
}

func TestFilterMatchesStatusAndFunction(t *testing.T) {
	j := &Job{Status: StatusRunning, Function: FunctionStandardSync}

	if !(Filter{Status: StatusRunning}).matches(j) {
		t.Error("expected status match")
	}
	if (Filter{Status: StatusFailed}).matches(j) {
		t.Error("expected status mismatch")
	}
	if !(Filter{Function: FunctionStandardSync}).matches(j) {
		t.Error("expected function match")
	}
	if (Filter{Function: "other"}).matches(j) {
		t.Error("expected function mismatch")
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusSucceeded, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	nonTerminal := []Status{StatusPending, StatusRunning}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}

func TestIdempotencyScopeSeparatesTenants(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	if idempotencyScope(&tenantA, "key") == idempotencyScope(&tenantB, "key") {
		t.Error("expected different tenants to have different idempotency scopes")
	}
	if idempotencyScope(nil, "key") != idempotencyScope(nil, "key") {
		t.Error("expected stable system-wide scope")
	}
}
