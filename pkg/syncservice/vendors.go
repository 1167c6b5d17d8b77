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

// GetVendors fetches every vendor, syncing each into the mirror and
// transaction log before returning. Strategy data-fetch, priority medium.
func (s *Service) GetVendors(ctx context.Context) ([]*ledgerwire.Vendor, error) {
	key := s.cacheKey("get-vendors")
	val, err := s.orch.Execute(ctx, key, orchestrator.StrategyDataFetch, orchestrator.PriorityMedium, func(ctx context.Context) (any, error) {
		return s.fetchAndSyncVendors(ctx)
	})
	if err != nil {
		return nil, err
	}
	return val.([]*ledgerwire.Vendor), nil
}

func (s *Service) fetchAndSyncVendors(ctx context.Context) ([]*ledgerwire.Vendor, error) {
	query := url.Values{"query": {"select * from Vendor orderby Name asc"}}
	result, err := s.transport.Execute(ctx, s.tenant, s.realmID, transport.Operation{
		Method: http.MethodGet,
		Path:   "/query",
		Query:  query,
		Fetch:  true,
	})
	if err != nil {
		return nil, err
	}

	raws, err := ledgerwire.ExtractQueryResponse(result.Body, "Vendor")
	if err != nil {
		return nil, ledgererr.New(ledgererr.KindValidation, "syncservice.GetVendors", err)
	}

	out := make([]*ledgerwire.Vendor, 0, len(raws))
	for _, raw := range raws {
		id, _ := ledgerwire.ExtractID(raw)
		old, err := mirror.GetVendor(ctx, s.mirror, s.tenant.ID, id)
		if err != nil && !notFound(err) {
			return nil, fmt.Errorf("reading prior vendor for sync: %w", err)
		}
		v, _, err := s.SyncVendorWithLog(ctx, old, raw, "", "")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SyncVendorWithLog maps, diffs, and atomically syncs one vendor.
func (s *Service) SyncVendorWithLog(ctx context.Context, old *ledgerwire.Vendor, wirePayload []byte, actor, session string) (*ledgerwire.Vendor, *SyncResult, error) {
	newVendor, err := ledgerwire.VendorFromWire(wirePayload)
	if err != nil {
		return nil, nil, ledgererr.New(ledgererr.KindValidation, "syncservice.SyncVendorWithLog", err)
	}

	diff := ledgerwire.VendorDiff(old, newVendor)
	txnType := txnTypeFor(old != nil, diff)

	result, err := s.syncWithLog(ctx, mirror.KindVendor, newVendor.ExternalID, diff, wirePayload, txnType, txnlog.SourceExternalLedger, actor, session, "", func(ctx context.Context, tx pgx.Tx) (bool, error) {
		return mirror.UpsertEntity[*ledgerwire.Vendor](ctx, s.mirror, tx, mirror.KindVendor, s.tenant.ID, newVendor)
	})
	if err != nil {
		return nil, nil, err
	}
	return newVendor, result, nil
}
