package syncservice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
	"github.com/data-steve/rowcol-sub001/pkg/mirror"
	"github.com/data-steve/rowcol-sub001/pkg/orchestrator"
	"github.com/data-steve/rowcol-sub001/pkg/transport"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

// GetBillsByDueDays fetches bills due within dueDays, syncing each into the
// mirror and transaction log before returning. Strategy data-fetch,
// priority high, per the bill-aging read path higher layers depend on most.
func (s *Service) GetBillsByDueDays(ctx context.Context, dueDays int) ([]*ledgerwire.Bill, error) {
	key := s.cacheKey("get-bills-by-due-days", fmt.Sprintf("%d", dueDays))
	val, err := s.orch.Execute(ctx, key, orchestrator.StrategyDataFetch, orchestrator.PriorityHigh, func(ctx context.Context) (any, error) {
		return s.fetchAndSyncBills(ctx, dueDays)
	})
	if err != nil {
		return nil, err
	}
	return val.([]*ledgerwire.Bill), nil
}

func (s *Service) fetchAndSyncBills(ctx context.Context, dueDays int) ([]*ledgerwire.Bill, error) {
	dueBefore := time.Now().AddDate(0, 0, dueDays).Format("2006-01-02")
	query := url.Values{"query": {fmt.Sprintf("select * from Bill where DueDate <= '%s' orderby DueDate asc", dueBefore)}}

	result, err := s.transport.Execute(ctx, s.tenant, s.realmID, transport.Operation{
		Method: http.MethodGet,
		Path:   "/query",
		Query:  query,
		Fetch:  true,
	})
	if err != nil {
		return nil, err
	}

	raws, err := ledgerwire.ExtractQueryResponse(result.Body, "Bill")
	if err != nil {
		return nil, ledgererr.New(ledgererr.KindValidation, "syncservice.GetBillsByDueDays", err)
	}

	out := make([]*ledgerwire.Bill, 0, len(raws))
	for _, raw := range raws {
		old, err := mirror.GetBill(ctx, s.mirror, s.tenant.ID, billExternalID(raw))
		if err != nil && !notFound(err) {
			return nil, fmt.Errorf("reading prior bill for sync: %w", err)
		}
		bill, _, err := s.SyncBillWithLog(ctx, old, raw, "", "")
		if err != nil {
			return nil, err
		}
		out = append(out, bill)
	}
	return out, nil
}

// SyncBillWithLog maps a raw bill payload, diffs it against the prior
// mirror row (nil on first sync), and atomically upserts the mirror and
// appends a transaction log entry describing the change.
func (s *Service) SyncBillWithLog(ctx context.Context, old *ledgerwire.Bill, wirePayload []byte, actor, session string) (*ledgerwire.Bill, *SyncResult, error) {
	newBill, err := ledgerwire.BillFromWire(wirePayload)
	if err != nil {
		return nil, nil, ledgererr.New(ledgererr.KindValidation, "syncservice.SyncBillWithLog", err)
	}

	diff := ledgerwire.BillDiff(old, newBill)
	txnType := txnTypeFor(old != nil, diff)

	result, err := s.syncWithLog(ctx, mirror.KindBill, newBill.ExternalID, diff, wirePayload, txnType, txnlog.SourceExternalLedger, actor, session, "", func(ctx context.Context, tx pgx.Tx) (bool, error) {
		return mirror.UpsertEntity[*ledgerwire.Bill](ctx, s.mirror, tx, mirror.KindBill, s.tenant.ID, newBill)
	})
	if err != nil {
		return nil, nil, err
	}
	return newBill, result, nil
}

// billExternalID extracts just the "Id" field from a raw wire payload,
// cheaper than a full BillFromWire round trip when only the key is needed.
func billExternalID(raw []byte) string {
	id, _ := ledgerwire.ExtractID(raw)
	return id
}
