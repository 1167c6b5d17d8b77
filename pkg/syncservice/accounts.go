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

// GetAccounts fetches the chart of accounts, syncing each into the mirror
// and transaction log before returning. Strategy data-fetch, priority medium.
func (s *Service) GetAccounts(ctx context.Context) ([]*ledgerwire.Account, error) {
	key := s.cacheKey("get-accounts")
	val, err := s.orch.Execute(ctx, key, orchestrator.StrategyDataFetch, orchestrator.PriorityMedium, func(ctx context.Context) (any, error) {
		return s.fetchAndSyncAccounts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return val.([]*ledgerwire.Account), nil
}

func (s *Service) fetchAndSyncAccounts(ctx context.Context) ([]*ledgerwire.Account, error) {
	query := url.Values{"query": {"select * from Account orderby Name asc"}}
	result, err := s.transport.Execute(ctx, s.tenant, s.realmID, transport.Operation{
		Method: http.MethodGet,
		Path:   "/query",
		Query:  query,
		Fetch:  true,
	})
	if err != nil {
		return nil, err
	}

	raws, err := ledgerwire.ExtractQueryResponse(result.Body, "Account")
	if err != nil {
		return nil, ledgererr.New(ledgererr.KindValidation, "syncservice.GetAccounts", err)
	}

	out := make([]*ledgerwire.Account, 0, len(raws))
	for _, raw := range raws {
		id, _ := ledgerwire.ExtractID(raw)
		old, err := mirror.GetAccount(ctx, s.mirror, s.tenant.ID, id)
		if err != nil && !notFound(err) {
			return nil, fmt.Errorf("reading prior account for sync: %w", err)
		}
		a, _, err := s.SyncAccountWithLog(ctx, old, raw, "", "")
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// SyncAccountWithLog maps, diffs, and atomically syncs one account.
func (s *Service) SyncAccountWithLog(ctx context.Context, old *ledgerwire.Account, wirePayload []byte, actor, session string) (*ledgerwire.Account, *SyncResult, error) {
	newAccount, err := ledgerwire.AccountFromWire(wirePayload)
	if err != nil {
		return nil, nil, ledgererr.New(ledgererr.KindValidation, "syncservice.SyncAccountWithLog", err)
	}

	diff := ledgerwire.AccountDiff(old, newAccount)
	txnType := txnTypeFor(old != nil, diff)

	result, err := s.syncWithLog(ctx, mirror.KindAccount, newAccount.ExternalID, diff, wirePayload, txnType, txnlog.SourceExternalLedger, actor, session, "", func(ctx context.Context, tx pgx.Tx) (bool, error) {
		return mirror.UpsertEntity[*ledgerwire.Account](ctx, s.mirror, tx, mirror.KindAccount, s.tenant.ID, newAccount)
	})
	if err != nil {
		return nil, nil, err
	}
	return newAccount, result, nil
}
