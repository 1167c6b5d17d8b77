package syncservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
	"github.com/data-steve/rowcol-sub001/pkg/mirror"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

// SyncResult reports the outcome of one mirror-and-log write. Applied is
// false when the monotonicity guard rejected the write as stale — in that
// case no log entry was appended, since nothing actually changed.
type SyncResult struct {
	Applied  bool
	Diff     map[string]ledgerwire.FieldDiff
	LogEntry *txnlog.Entry
}

// upsertFunc performs one typed mirror upsert within the given transaction,
// returning whether the monotonicity guard accepted the write.
type upsertFunc func(ctx context.Context, tx pgx.Tx) (bool, error)

// syncWithLog runs upsert and, if it applied, a transaction log append in
// one local transaction: the write contract's atomicity requirement. If
// either step fails the whole transaction rolls back and neither the
// mirror nor the log observes the mutation.
func (s *Service) syncWithLog(ctx context.Context, kind mirror.Kind, externalID string, diff map[string]ledgerwire.FieldDiff, wirePayload []byte, txnType txnlog.Type, source txnlog.Source, actor, session, reason string, upsert upsertFunc) (*SyncResult, error) {
	tx, err := s.mirror.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning sync transaction for %s %s: %w", kind, externalID, err)
	}
	defer tx.Rollback(ctx)

	applied, err := upsert(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Applied: applied, Diff: diff}
	if applied {
		diffJSON, err := txnlog.MarshalDiff(diff)
		if err != nil {
			return nil, err
		}
		entry := &txnlog.Entry{
			TenantID:    s.tenant.ID,
			EntityKind:  string(kind),
			EntityID:    externalID,
			Type:        txnType,
			Diff:        diffJSON,
			WirePayload: wirePayload,
			Source:      source,
			Actor:       actor,
			Session:     session,
			Reason:      reason,
		}
		if err := s.txlog.AppendInTx(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("appending transaction log entry for %s %s: %w", kind, externalID, err)
		}
		result.LogEntry = entry
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing sync transaction for %s %s: %w", kind, externalID, err)
	}
	return result, nil
}

// txnTypeFor classifies a sync for the transaction log entry. Both a fresh
// row (no prior mirror entry) and a changed one are logged as synced, per
// S1/S3: the external ledger sync path never distinguishes "created" from
// "updated" the way a user-initiated mutation would. A prior row with an
// empty diff is logged as updated; this happens when a newer sync token
// arrives with no field change, since the ledgerwire diffs do not include
// sync_token.
func txnTypeFor(hadOld bool, diff map[string]ledgerwire.FieldDiff) txnlog.Type {
	if !hadOld || len(diff) > 0 {
		return txnlog.TypeSynced
	}
	return txnlog.TypeUpdated
}

// notFound reports whether err is the "no mirror row yet" case from a typed
// Get* lookup, which is expected on first sync and not itself an error.
func notFound(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}
