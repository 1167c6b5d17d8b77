package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
	"github.com/data-steve/rowcol-sub001/pkg/syncservice"
)

// FunctionStandardSync is the Function name of the standard-sync job. It is
// enqueued by the HTTP sync-trigger endpoint; nothing in this module enqueues
// it on a timer or fans it out across connected tenants.
const FunctionStandardSync = "standard-sync"

// StandardSyncArgs carries the bill-due-days / invoice-aging-days windows a
// standard sync run pulls, so a job's arguments fully describe its work.
type StandardSyncArgs struct {
	DueDays   int `json:"due_days"`
	AgingDays int `json:"aging_days"`
}

// StandardSyncStepResult records one entity kind's outcome within a run,
// so a partially-failed run's Result still shows what did land.
type StandardSyncStepResult struct {
	Entity string `json:"entity"`
	Count  int    `json:"count,omitempty"`
	Error  string `json:"error,omitempty"`
}

// StandardSyncResult is the Job.Result payload for a standard-sync run.
type StandardSyncResult struct {
	Steps []StandardSyncStepResult `json:"steps"`
}

// ServiceFactory resolves a per-tenant Service at dispatch time — the
// scheduler only ever holds tenant ids, never long-lived Service values,
// since a Service is cheap to construct and tenant connection state (the
// credential, the realm id) can change between runs.
type ServiceFactory func(ctx context.Context, tenantID uuid.UUID) (*syncservice.Service, error)

// NewStandardSyncHandler builds the Handler for FunctionStandardSync: it
// runs each entity kind's sync as an ordered step, continuing past a failing
// step so one broken entity kind never blocks the rest, then reports the
// worst step's classification as the job's error. Steps are not retried one
// by one: a retry of the job runs every step again.
func NewStandardSyncHandler(services ServiceFactory, logger *slog.Logger) Handler {
	return func(ctx context.Context, j *Job) (json.RawMessage, error) {
		if j.TenantID == nil {
			return nil, ledgererr.New(ledgererr.KindPermanent, "jobs.StandardSync", fmt.Errorf("standard sync requires a tenant id"))
		}
		var args StandardSyncArgs
		if len(j.Arguments) > 0 {
			if err := json.Unmarshal(j.Arguments, &args); err != nil {
				return nil, ledgererr.New(ledgererr.KindValidation, "jobs.StandardSync", fmt.Errorf("decoding arguments: %w", err))
			}
		}
		if args.DueDays <= 0 {
			args.DueDays = 30
		}
		if args.AgingDays <= 0 {
			args.AgingDays = 90
		}

		svc, err := services(ctx, *j.TenantID)
		if err != nil {
			return nil, err
		}

		result := StandardSyncResult{}
		var worstErr error

		steps := []struct {
			entity string
			run    func(context.Context) (int, error)
		}{
			{"bills", func(ctx context.Context) (int, error) {
				bills, err := svc.GetBillsByDueDays(ctx, args.DueDays)
				return len(bills), err
			}},
			{"invoices", func(ctx context.Context) (int, error) {
				invoices, err := svc.GetInvoicesByAgingDays(ctx, args.AgingDays)
				return len(invoices), err
			}},
			{"vendors", func(ctx context.Context) (int, error) {
				vendors, err := svc.GetVendors(ctx)
				return len(vendors), err
			}},
			{"customers", func(ctx context.Context) (int, error) {
				customers, err := svc.GetCustomers(ctx)
				return len(customers), err
			}},
			{"accounts", func(ctx context.Context) (int, error) {
				accounts, err := svc.GetAccounts(ctx)
				return len(accounts), err
			}},
			{"company-info", func(ctx context.Context) (int, error) {
				info, err := svc.GetCompanyInfo(ctx)
				if err != nil {
					return 0, err
				}
				if info == nil {
					return 0, nil
				}
				return 1, nil
			}},
		}

		for _, step := range steps {
			count, err := step.run(ctx)
			sr := StandardSyncStepResult{Entity: step.entity, Count: count}
			if err != nil {
				sr.Error = err.Error()
				logger.Warn("standard sync step failed", "tenant_id", j.TenantID, "entity", step.entity, "error", err)
				if worstErr == nil || moreSevere(err, worstErr) {
					worstErr = err
				}
			}
			result.Steps = append(result.Steps, sr)
		}

		payload, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return nil, ledgererr.New(ledgererr.KindPermanent, "jobs.StandardSync", fmt.Errorf("encoding result: %w", marshalErr))
		}
		if worstErr != nil {
			return payload, worstErr
		}
		return payload, nil
	}
}

// moreSevere orders failures for reporting purposes: a non-retryable error
// takes precedence over a retryable one, since it is the one that needs
// attention rather than another scheduled attempt.
func moreSevere(candidate, current error) bool {
	candidateKind, _ := ledgererr.KindOf(candidate)
	currentKind, _ := ledgererr.KindOf(current)
	return !ledgererr.Retryable(candidateKind) && ledgererr.Retryable(currentKind)
}
