package syncservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
	"github.com/data-steve/rowcol-sub001/pkg/mirror"
	"github.com/data-steve/rowcol-sub001/pkg/orchestrator"
	"github.com/data-steve/rowcol-sub001/pkg/transport"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

// idempotencyWindow bounds how long a client-supplied idempotency key
// suppresses a duplicate POST against the external ledger.
const idempotencyWindow = 24 * time.Hour

// RecordPayment posts a new payment to the external ledger and syncs the
// result into the mirror and transaction log in one transaction. Strategy
// immediate, priority high: payments never cache or wait behind a
// deduplication key, but a repeated call carrying the same idempotencyKey
// within the idempotency window short-circuits before any POST and returns
// the previously recorded payment.
func (s *Service) RecordPayment(ctx context.Context, wirePayload []byte, idempotencyKey, actor, session string) (*ledgerwire.Payment, *SyncResult, error) {
	if idempotencyKey != "" {
		externalID, found, err := s.lookupIdempotentPayment(ctx, idempotencyKey)
		if err != nil {
			return nil, nil, fmt.Errorf("checking payment idempotency key: %w", err)
		}
		if found {
			payment, err := mirror.GetPayment(ctx, s.mirror, s.tenant.ID, externalID)
			if err != nil {
				return nil, nil, fmt.Errorf("loading idempotent payment %s: %w", externalID, err)
			}
			return payment, &SyncResult{Applied: false}, nil
		}
	}

	val, err := s.orch.Execute(ctx, "", orchestrator.StrategyImmediate, orchestrator.PriorityHigh, func(ctx context.Context) (any, error) {
		result, err := s.transport.Execute(ctx, s.tenant, s.realmID, transport.Operation{
			Method: http.MethodPost,
			Path:   "/payments",
			Body:   wirePayload,
		})
		if err != nil {
			return nil, err
		}
		return s.syncExecutedPayment(ctx, result.Body, idempotencyKey, actor, session)
	})
	if err != nil {
		return nil, nil, err
	}
	pair := val.(paymentSyncOutcome)
	return pair.payment, pair.result, nil
}

type paymentSyncOutcome struct {
	payment *ledgerwire.Payment
	result  *SyncResult
}

func (s *Service) syncExecutedPayment(ctx context.Context, wirePayload []byte, idempotencyKey, actor, session string) (paymentSyncOutcome, error) {
	newPayment, err := ledgerwire.PaymentFromWire(wirePayload)
	if err != nil {
		return paymentSyncOutcome{}, ledgererr.New(ledgererr.KindValidation, "syncservice.RecordPayment", err)
	}

	diff := ledgerwire.PaymentDiff(nil, newPayment)
	result, err := s.syncWithLog(ctx, mirror.KindPayment, newPayment.ExternalID, diff, wirePayload, txnlog.TypeExecuted, txnlog.SourcePaymentRail, actor, session, "", func(ctx context.Context, tx pgx.Tx) (bool, error) {
		if idempotencyKey != "" {
			if err := s.recordIdempotentPayment(ctx, tx, idempotencyKey, newPayment.ExternalID); err != nil {
				return false, err
			}
		}
		return mirror.UpsertEntity[*ledgerwire.Payment](ctx, s.mirror, tx, mirror.KindPayment, s.tenant.ID, newPayment)
	})
	if err != nil {
		return paymentSyncOutcome{}, err
	}
	return paymentSyncOutcome{payment: newPayment, result: result}, nil
}

func (s *Service) lookupIdempotentPayment(ctx context.Context, key string) (externalID string, found bool, err error) {
	row := s.mirror.Pool().QueryRow(ctx, `
		SELECT external_id FROM payment_idempotency_keys
		WHERE tenant_id = $1 AND idempotency_key = $2 AND created_at > now() - $3::interval`,
		s.tenant.ID, key, fmt.Sprintf("%d seconds", int(idempotencyWindow.Seconds())),
	)
	if err := row.Scan(&externalID); err != nil {
		if notFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return externalID, true, nil
}

func (s *Service) recordIdempotentPayment(ctx context.Context, exec mirror.Execer, key, externalID string) error {
	_, err := exec.Exec(ctx, `
		INSERT INTO payment_idempotency_keys (tenant_id, idempotency_key, external_id, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING`,
		s.tenant.ID, key, externalID,
	)
	return err
}
