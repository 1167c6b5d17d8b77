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

// GetInvoicesByAgingDays fetches invoices issued at least agingDays ago,
// syncing each into the mirror and transaction log before returning.
func (s *Service) GetInvoicesByAgingDays(ctx context.Context, agingDays int) ([]*ledgerwire.Invoice, error) {
	key := s.cacheKey("get-invoices-by-aging-days", fmt.Sprintf("%d", agingDays))
	val, err := s.orch.Execute(ctx, key, orchestrator.StrategyDataFetch, orchestrator.PriorityHigh, func(ctx context.Context) (any, error) {
		return s.fetchAndSyncInvoices(ctx, agingDays)
	})
	if err != nil {
		return nil, err
	}
	return val.([]*ledgerwire.Invoice), nil
}

func (s *Service) fetchAndSyncInvoices(ctx context.Context, agingDays int) ([]*ledgerwire.Invoice, error) {
	since := time.Now().AddDate(0, 0, -agingDays).Format("2006-01-02")
	query := url.Values{"query": {fmt.Sprintf("select * from Invoice where TxnDate <= '%s' orderby TxnDate asc", since)}}

	result, err := s.transport.Execute(ctx, s.tenant, s.realmID, transport.Operation{
		Method: http.MethodGet,
		Path:   "/query",
		Query:  query,
		Fetch:  true,
	})
	if err != nil {
		return nil, err
	}

	raws, err := ledgerwire.ExtractQueryResponse(result.Body, "Invoice")
	if err != nil {
		return nil, ledgererr.New(ledgererr.KindValidation, "syncservice.GetInvoicesByAgingDays", err)
	}

	out := make([]*ledgerwire.Invoice, 0, len(raws))
	for _, raw := range raws {
		id, _ := ledgerwire.ExtractID(raw)
		old, err := mirror.GetInvoice(ctx, s.mirror, s.tenant.ID, id)
		if err != nil && !notFound(err) {
			return nil, fmt.Errorf("reading prior invoice for sync: %w", err)
		}
		inv, _, err := s.SyncInvoiceWithLog(ctx, old, raw, "", "")
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

// SyncInvoiceWithLog maps, diffs, and atomically syncs one invoice.
func (s *Service) SyncInvoiceWithLog(ctx context.Context, old *ledgerwire.Invoice, wirePayload []byte, actor, session string) (*ledgerwire.Invoice, *SyncResult, error) {
	newInv, err := ledgerwire.InvoiceFromWire(wirePayload)
	if err != nil {
		return nil, nil, ledgererr.New(ledgererr.KindValidation, "syncservice.SyncInvoiceWithLog", err)
	}

	diff := ledgerwire.InvoiceDiff(old, newInv)
	txnType := txnTypeFor(old != nil, diff)

	result, err := s.syncWithLog(ctx, mirror.KindInvoice, newInv.ExternalID, diff, wirePayload, txnType, txnlog.SourceExternalLedger, actor, session, "", func(ctx context.Context, tx pgx.Tx) (bool, error) {
		return mirror.UpsertEntity[*ledgerwire.Invoice](ctx, s.mirror, tx, mirror.KindInvoice, s.tenant.ID, newInv)
	})
	if err != nil {
		return nil, nil, err
	}
	return newInv, result, nil
}
