// Package jobs implements the Background Job Runner (C8): a scheduler and
// pluggable store for recurring and deferred work, sitting on top of
// pkg/syncservice the same way C8 sits on top of C7 in the data flow —
// background path: C8 → C7 → read path over a batch.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is one state in the job lifecycle state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether a job in this status will never transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Job is one unit of scheduled or deferred work.
type Job struct {
	ID             uuid.UUID
	TenantID       *uuid.UUID // nil for system-wide work
	IdempotencyKey string     // empty means no idempotency guard
	Function       string
	Arguments      json.RawMessage
	Status         Status
	Attempts       int
	NextEligibleAt time.Time
	CreatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	LastError      string
	Result         json.RawMessage
}

// Filter narrows a ListByFilter call. Zero-value fields are unconstrained.
type Filter struct {
	TenantID *uuid.UUID
	Status   Status
	Function string
}

func (f Filter) matches(j *Job) bool {
	if f.TenantID != nil {
		if j.TenantID == nil || *j.TenantID != *f.TenantID {
			return false
		}
	}
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.Function != "" && j.Function != f.Function {
		return false
	}
	return true
}

// idempotencyScope composes the (tenant, key) lookup scope used by the
// idempotency-key collision check, since the key is only unique per tenant
// (or per the system-wide scope when TenantID is nil).
func idempotencyScope(tenantID *uuid.UUID, key string) string {
	scope := "system"
	if tenantID != nil {
		scope = tenantID.String()
	}
	return scope + ":" + key
}
