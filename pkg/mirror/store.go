// Package mirror implements the Mirror Store (C4): a per-tenant
// authoritative copy of external ledger entities, independent of any live
// call to the ledger. Every write is guarded by sync-token monotonicity;
// every read is tenant-scoped.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/data-steve/rowcol-sub001/internal/telemetry"
)

// Kind identifies an entity family, one per mirror table.
type Kind string

const (
	KindBill        Kind = "bill"
	KindInvoice     Kind = "invoice"
	KindVendor      Kind = "vendor"
	KindCustomer    Kind = "customer"
	KindPayment     Kind = "payment"
	KindAccount     Kind = "account"
	KindCompanyInfo Kind = "company_info"
	KindBalance     Kind = "balance"
)

var tableNames = map[Kind]string{
	KindBill:        "mirror_bills",
	KindInvoice:     "mirror_invoices",
	KindVendor:      "mirror_vendors",
	KindCustomer:    "mirror_customers",
	KindPayment:     "mirror_payments",
	KindAccount:     "mirror_accounts",
	KindCompanyInfo: "mirror_company_info",
	KindBalance:     "mirror_balances",
}

func tableFor(kind Kind) (string, error) {
	name, ok := tableNames[kind]
	if !ok {
		return "", fmt.Errorf("mirror: unknown entity kind %q", kind)
	}
	return name, nil
}

// Row is the generic shape of a mirror row: an entity's normalized fields
// stored as JSON alongside the bookkeeping columns every table shares.
type Row struct {
	TenantID   uuid.UUID
	ExternalID string
	SyncToken  int64
	Fields     json.RawMessage
	IsActive   bool
	UpdatedAt  time.Time
}

// Store provides tenant-scoped, sync-token-guarded access to every mirror
// table. One Store instance is shared across all entity kinds; callers
// (typically pkg/syncservice's typed wrappers) pass the Kind.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a mirror Store backed by the given global pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Execer is satisfied by both *pgxpool.Pool and pgx.Tx. Mirror writes take
// one explicitly so a caller (pkg/syncservice) can run the mirror upsert
// and the transaction log append in the same local transaction, per the
// write contract's atomicity requirement.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Upsert inserts a row if absent, or updates it only if syncToken is
// strictly greater than the stored value. Returns applied=false when the
// incoming token was not newer — the write is silently dropped and counted
// as a stale write in metrics, per the monotonicity guard. Pass a pgx.Tx
// (not the pool) when this write must be atomic with a transaction log append.
func (s *Store) Upsert(ctx context.Context, exec Execer, kind Kind, tenantID uuid.UUID, externalID string, syncToken int64, fields json.RawMessage) (applied bool, err error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, external_id, sync_token, fields, is_active, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, true, now())
		ON CONFLICT (tenant_id, external_id) DO UPDATE
		SET sync_token = EXCLUDED.sync_token,
		    fields = EXCLUDED.fields,
		    is_active = true,
		    updated_at = now()
		WHERE %s.sync_token < EXCLUDED.sync_token`, table, table)

	tag, err := exec.Exec(ctx, query, tenantID, externalID, syncToken, fields)
	if err != nil {
		return false, fmt.Errorf("upserting %s %s for tenant %s: %w", kind, externalID, tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		telemetry.StaleWritesIgnoredTotal.WithLabelValues(string(kind)).Inc()
		return false, nil
	}
	return true, nil
}

// Get returns one tenant-scoped row by external id, including soft-deleted
// rows — callers that only want live entities filter on IsActive themselves
// or use List, which excludes them by default.
func (s *Store) Get(ctx context.Context, kind Kind, tenantID uuid.UUID, externalID string) (*Row, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT tenant_id, external_id, sync_token, fields, is_active, updated_at
		FROM %s WHERE tenant_id = $1 AND external_id = $2`, table)
	row := s.pool.QueryRow(ctx, query, tenantID, externalID)
	return scanRow(row)
}

// List returns every active row for a tenant. includeInactive widens that
// to soft-deleted rows as well, for reconciliation tooling.
func (s *Store) List(ctx context.Context, kind Kind, tenantID uuid.UUID, includeInactive bool) ([]*Row, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT tenant_id, external_id, sync_token, fields, is_active, updated_at
		FROM %s WHERE tenant_id = $1`, table)
	if !includeInactive {
		query += " AND is_active = true"
	}
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing %s rows for tenant %s: %w", kind, tenantID, err)
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", kind, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SoftDelete flips is_active to false without touching sync_token or
// fields — hard deletes are forbidden per the mirror's delete contract.
func (s *Store) SoftDelete(ctx context.Context, exec Execer, kind Kind, tenantID uuid.UUID, externalID string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET is_active = false, updated_at = now()
		WHERE tenant_id = $1 AND external_id = $2`, table)
	if _, err := exec.Exec(ctx, query, tenantID, externalID); err != nil {
		return fmt.Errorf("soft-deleting %s %s for tenant %s: %w", kind, externalID, tenantID, err)
	}
	return nil
}

// Pool returns the underlying connection pool so callers (pkg/syncservice)
// can begin a transaction spanning a mirror write and a transaction log append.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func scanRow(row pgx.Row) (*Row, error) {
	var r Row
	if err := row.Scan(&r.TenantID, &r.ExternalID, &r.SyncToken, &r.Fields, &r.IsActive, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
