package syncservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
	"github.com/data-steve/rowcol-sub001/pkg/mirror"
	"github.com/data-steve/rowcol-sub001/pkg/orchestrator"
	"github.com/data-steve/rowcol-sub001/pkg/transport"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

// GetCompanyInfo fetches the tenant's single company info record, syncing
// it into the mirror and transaction log. Strategy data-fetch, priority
// high — company info backs the digest higher layers build on every load.
func (s *Service) GetCompanyInfo(ctx context.Context) (*ledgerwire.CompanyInfo, error) {
	key := s.cacheKey("get-company-info")
	val, err := s.orch.Execute(ctx, key, orchestrator.StrategyDataFetch, orchestrator.PriorityHigh, func(ctx context.Context) (any, error) {
		return s.fetchAndSyncCompanyInfo(ctx)
	})
	if err != nil {
		return nil, err
	}
	return val.(*ledgerwire.CompanyInfo), nil
}

func (s *Service) fetchAndSyncCompanyInfo(ctx context.Context) (*ledgerwire.CompanyInfo, error) {
	result, err := s.transport.Execute(ctx, s.tenant, s.realmID, transport.Operation{
		Method: http.MethodGet,
		Path:   "/companyinfo/" + s.realmID,
		Fetch:  true,
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		CompanyInfo json.RawMessage `json:"CompanyInfo"`
	}
	if err := json.Unmarshal(result.Body, &envelope); err != nil {
		return nil, ledgererr.New(ledgererr.KindValidation, "syncservice.GetCompanyInfo", fmt.Errorf("unmarshaling company info envelope: %w", err))
	}

	old, err := mirror.GetCompanyInfo(ctx, s.mirror, s.tenant.ID, s.realmID)
	if err != nil && !notFound(err) {
		return nil, fmt.Errorf("reading prior company info for sync: %w", err)
	}
	info, _, err := s.SyncCompanyInfoWithLog(ctx, old, envelope.CompanyInfo, "", "")
	return info, err
}

// SyncCompanyInfoWithLog maps, diffs, and atomically syncs the company
// info record.
func (s *Service) SyncCompanyInfoWithLog(ctx context.Context, old *ledgerwire.CompanyInfo, wirePayload []byte, actor, session string) (*ledgerwire.CompanyInfo, *SyncResult, error) {
	newInfo, err := ledgerwire.CompanyInfoFromWire(wirePayload)
	if err != nil {
		return nil, nil, ledgererr.New(ledgererr.KindValidation, "syncservice.SyncCompanyInfoWithLog", err)
	}

	diff := ledgerwire.CompanyInfoDiff(old, newInfo)
	txnType := txnTypeFor(old != nil, diff)

	result, err := s.syncWithLog(ctx, mirror.KindCompanyInfo, newInfo.ExternalID, diff, wirePayload, txnType, txnlog.SourceExternalLedger, actor, session, "", func(ctx context.Context, tx pgx.Tx) (bool, error) {
		return mirror.UpsertEntity[*ledgerwire.CompanyInfo](ctx, s.mirror, tx, mirror.KindCompanyInfo, s.tenant.ID, newInfo)
	})
	if err != nil {
		return nil, nil, err
	}
	return newInfo, result, nil
}
