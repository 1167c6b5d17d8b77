package syncservice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jackc/pgx/v5"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
	"github.com/data-steve/rowcol-sub001/pkg/mirror"
	"github.com/data-steve/rowcol-sub001/pkg/orchestrator"
	"github.com/data-steve/rowcol-sub001/pkg/transport"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

// GetCustomers fetches every customer, syncing each into the mirror and
// transaction log before returning. Strategy data-fetch, priority medium.
func (s *Service) GetCustomers(ctx context.Context) ([]*ledgerwire.Customer, error) {
	key := s.cacheKey("get-customers")
	val, err := s.orch.Execute(ctx, key, orchestrator.StrategyDataFetch, orchestrator.PriorityMedium, func(ctx context.Context) (any, error) {
		return s.fetchAndSyncCustomers(ctx)
	})
	if err != nil {
		return nil, err
	}
	return val.([]*ledgerwire.Customer), nil
}

func (s *Service) fetchAndSyncCustomers(ctx context.Context) ([]*ledgerwire.Customer, error) {
	query := url.Values{"query": {"select * from Customer orderby Name asc"}}
	result, err := s.transport.Execute(ctx, s.tenant, s.realmID, transport.Operation{
		Method: http.MethodGet,
		Path:   "/query",
		Query:  query,
		Fetch:  true,
	})
	if err != nil {
		return nil, err
	}

	raws, err := ledgerwire.ExtractQueryResponse(result.Body, "Customer")
	if err != nil {
		return nil, ledgererr.New(ledgererr.KindValidation, "syncservice.GetCustomers", err)
	}

	out := make([]*ledgerwire.Customer, 0, len(raws))
	for _, raw := range raws {
		id, _ := ledgerwire.ExtractID(raw)
		old, err := mirror.GetCustomer(ctx, s.mirror, s.tenant.ID, id)
		if err != nil && !notFound(err) {
			return nil, fmt.Errorf("reading prior customer for sync: %w", err)
		}
		c, _, err := s.SyncCustomerWithLog(ctx, old, raw, "", "")
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SyncCustomerWithLog maps, diffs, and atomically syncs one customer.
func (s *Service) SyncCustomerWithLog(ctx context.Context, old *ledgerwire.Customer, wirePayload []byte, actor, session string) (*ledgerwire.Customer, *SyncResult, error) {
	newCustomer, err := ledgerwire.CustomerFromWire(wirePayload)
	if err != nil {
		return nil, nil, ledgererr.New(ledgererr.KindValidation, "syncservice.SyncCustomerWithLog", err)
	}

	diff := ledgerwire.CustomerDiff(old, newCustomer)
	txnType := txnTypeFor(old != nil, diff)

	result, err := s.syncWithLog(ctx, mirror.KindCustomer, newCustomer.ExternalID, diff, wirePayload, txnType, txnlog.SourceExternalLedger, actor, session, "", func(ctx context.Context, tx pgx.Tx) (bool, error) {
		return mirror.UpsertEntity[*ledgerwire.Customer](ctx, s.mirror, tx, mirror.KindCustomer, s.tenant.ID, newCustomer)
	})
	if err != nil {
		return nil, nil, err
	}
	return newCustomer, result, nil
}
