package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
)

// Balance snapshots have no sync token of their own (the external ledger's
// balance-sheet report is not an entity endpoint) — every sync simply
// records the latest snapshot per (tenant, account, as-of-date), so this
// bypasses the generic monotonicity-guarded UpsertEntity path.

// UpsertBalance stores one point-in-time account balance snapshot.
func UpsertBalance(ctx context.Context, s *Store, exec Execer, tenantID uuid.UUID, b *ledgerwire.Balance) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling balance for mirror storage: %w", err)
	}
	key := balanceKey(b)
	query := `
		INSERT INTO mirror_balances (tenant_id, external_id, sync_token, fields, is_active, updated_at)
		VALUES ($1, $2, 0, $3::jsonb, true, now())
		ON CONFLICT (tenant_id, external_id) DO UPDATE
		SET fields = EXCLUDED.fields, is_active = true, updated_at = now()`
	if _, err := exec.Exec(ctx, query, tenantID, key, data); err != nil {
		return fmt.Errorf("upserting balance snapshot for tenant %s: %w", tenantID, err)
	}
	return nil
}

// ListBalances retrieves every stored balance snapshot for a tenant.
func ListBalances(ctx context.Context, s *Store, tenantID uuid.UUID) ([]*ledgerwire.Balance, error) {
	return listTyped[ledgerwire.Balance](ctx, s, KindBalance, tenantID)
}

// balanceKey composes the conflict key for a snapshot: one row per account
// per as-of date, so re-syncing the same date overwrites rather than
// accumulating duplicate rows.
func balanceKey(b *ledgerwire.Balance) string {
	return fmt.Sprintf("%s:%s", b.AccountRef.ID, ledgerwire.DateToWire(b.AsOfDate))
}
