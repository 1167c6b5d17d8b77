package syncservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
	"github.com/data-steve/rowcol-sub001/pkg/mirror"
	"github.com/data-steve/rowcol-sub001/pkg/orchestrator"
	"github.com/data-steve/rowcol-sub001/pkg/transport"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

// SyncBalances fetches the balance sheet report and records one snapshot
// per leaf account row. Strategy on-demand, priority medium — balances
// back cash-runway computation in the higher layer but tolerate a short
// cache TTL, unlike a tokened entity read. Supplements the distilled spec's
// entity list per the original sync job's balance-sheet target.
func (s *Service) SyncBalances(ctx context.Context) ([]*ledgerwire.Balance, error) {
	key := s.cacheKey("sync-balances")
	val, err := s.orch.Execute(ctx, key, orchestrator.StrategyOnDemand, orchestrator.PriorityMedium, func(ctx context.Context) (any, error) {
		return s.fetchAndSyncBalances(ctx)
	})
	if err != nil {
		return nil, err
	}
	return val.([]*ledgerwire.Balance), nil
}

func (s *Service) fetchAndSyncBalances(ctx context.Context) ([]*ledgerwire.Balance, error) {
	asOf := time.Now()
	result, err := s.transport.Execute(ctx, s.tenant, s.realmID, transport.Operation{
		Method: http.MethodGet,
		Path:   "/reports/BalanceSheet",
		Query:  url.Values{"date_macro": {"Today"}},
		Fetch:  true,
	})
	if err != nil {
		return nil, err
	}

	rows, err := flattenBalanceSheetRows(result.Body)
	if err != nil {
		return nil, ledgererr.New(ledgererr.KindValidation, "syncservice.SyncBalances", err)
	}

	out := make([]*ledgerwire.Balance, 0, len(rows))
	for _, row := range rows {
		balance := &ledgerwire.Balance{
			AccountRef:  ledgerwire.Ref{ID: row.accountID, Name: row.accountName},
			AmountMinor: row.amountMinor,
			AsOfDate:    asOf,
		}
		if err := s.syncOneBalance(ctx, balance); err != nil {
			return nil, err
		}
		out = append(out, balance)
	}
	return out, nil
}

// syncOneBalance upserts one snapshot and appends a transaction log entry
// in a single transaction. Balances have no sync token of their own, so
// every fetch is logged as a fresh synced observation rather than being
// gated by the monotonicity guard the tokened entities use.
func (s *Service) syncOneBalance(ctx context.Context, b *ledgerwire.Balance) error {
	wirePayload, err := ledgerwire.BalanceToWire(b)
	if err != nil {
		return fmt.Errorf("serializing balance snapshot: %w", err)
	}
	diff := ledgerwire.BalanceDiff(nil, b)

	tx, err := s.mirror.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning balance sync transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := mirror.UpsertBalance(ctx, s.mirror, tx, s.tenant.ID, b); err != nil {
		return err
	}

	diffJSON, err := txnlog.MarshalDiff(diff)
	if err != nil {
		return err
	}
	entry := &txnlog.Entry{
		TenantID:    s.tenant.ID,
		EntityKind:  string(mirror.KindBalance),
		EntityID:    fmt.Sprintf("%s:%s", b.AccountRef.ID, ledgerwire.DateToWire(b.AsOfDate)),
		Type:        txnlog.TypeSynced,
		Diff:        diffJSON,
		WirePayload: wirePayload,
		Source:      txnlog.SourceExternalLedger,
	}
	if err := s.txlog.AppendInTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("appending transaction log entry for balance: %w", err)
	}

	return tx.Commit(ctx)
}

type balanceSheetRow struct {
	accountID   string
	accountName string
	amountMinor int64
}

// flattenBalanceSheetRows walks the report's nested Rows/ColData structure
// and extracts one entry per leaf account row (a row whose ColData carries
// both a label and a numeric column, rather than a summary/section header).
func flattenBalanceSheetRows(payload []byte) ([]balanceSheetRow, error) {
	var report struct {
		Rows struct {
			Row []reportRow `json:"Row"`
		} `json:"Rows"`
	}
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshaling balance sheet report: %w", err)
	}

	var out []balanceSheetRow
	walkReportRows(report.Rows.Row, &out)
	return out, nil
}

type reportRow struct {
	ColData []struct {
		Value string `json:"value"`
		ID    string `json:"id"`
	} `json:"ColData"`
	Rows struct {
		Row []reportRow `json:"Row"`
	} `json:"Rows"`
}

func walkReportRows(rows []reportRow, out *[]balanceSheetRow) {
	for _, r := range rows {
		if len(r.Rows.Row) > 0 {
			walkReportRows(r.Rows.Row, out)
			continue
		}
		if len(r.ColData) < 2 || r.ColData[0].ID == "" {
			continue
		}
		amountMinor, err := ledgerwire.MinorUnitsFromWire(r.ColData[len(r.ColData)-1].Value)
		if err != nil {
			continue
		}
		*out = append(*out, balanceSheetRow{
			accountID:   r.ColData[0].ID,
			accountName: r.ColData[0].Value,
			amountMinor: amountMinor,
		})
	}
}
