// Package txnlog implements the Transaction Log (C5): an immutable,
// append-only audit trail of every mirror mutation. Entries are never
// updated or deleted. Nothing in this module checks after the fact for a log
// entry without a matching mirror change, or vice versa; the two are kept
// together only by being written in one transaction.
package txnlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/data-steve/rowcol-sub001/internal/telemetry"
)

// Source attributes where a mutation originated. Left as an open
// string-backed enum (not a closed Go enum) so future rail sources — the
// original sync job's parked Ramp/Stripe integrations — can be added
// without a breaking schema change.
type Source string

const (
	SourceExternalLedger Source = "external-ledger"
	SourcePaymentRail    Source = "payment-rail"
	SourceBankRail       Source = "bank-rail"
	SourceUser           Source = "user"
	SourceSystem         Source = "system"
)

// Type classifies the kind of mutation an entry records.
type Type string

const (
	TypeCreated  Type = "created"
	TypeUpdated  Type = "updated"
	TypeDeleted  Type = "deleted"
	TypeSynced   Type = "synced"
	TypeExecuted Type = "executed"
	TypeFailed   Type = "failed"
)

// Entry is one immutable transaction log record.
type Entry struct {
	ID                int64
	TenantID          uuid.UUID
	EntityKind        string
	EntityID          string
	Type              Type
	ExternalSyncToken *int64
	Diff              json.RawMessage // map[string]ledgerwire.FieldDiff, marshaled
	WirePayload       json.RawMessage
	Source            Source
	Actor             string
	Session           string
	Reason            string
	Metadata          json.RawMessage
	CreatedAt         time.Time
}

// Store provides append and ordered-read access to the transaction log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a transaction log Store backed by the given global pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type Execer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AppendInTx writes one entry within the caller's transaction. It must be
// called in the same local transaction as the mirror write it describes —
// if the enclosing transaction later rolls back, this entry rolls back
// with it, preserving the write contract's atomicity requirement. On
// success it populates e.ID and e.CreatedAt.
func (s *Store) AppendInTx(ctx context.Context, exec Execer, e *Entry) error {
	row := exec.QueryRow(ctx, `
		INSERT INTO transaction_log
			(tenant_id, entity_kind, entity_id, type, external_sync_token, diff, wire_payload, source, actor, session, reason, metadata)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9, $10, $11, $12::jsonb)
		RETURNING id, created_at`,
		e.TenantID, e.EntityKind, e.EntityID, e.Type, e.ExternalSyncToken, e.Diff, e.WirePayload,
		e.Source, e.Actor, e.Session, e.Reason, e.Metadata,
	)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("appending transaction log entry for %s %s: %w", e.EntityKind, e.EntityID, err)
	}
	telemetry.TransactionLogAppendsTotal.WithLabelValues(e.EntityKind).Inc()
	return nil
}

// Query returns every entry for (tenant, entity kind, entity id) in
// monotonic entry-id order, which reflects commit order.
func (s *Store) Query(ctx context.Context, tenantID uuid.UUID, entityKind, entityID string) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, entity_kind, entity_id, type, external_sync_token, diff, wire_payload, source, actor, session, reason, metadata, created_at
		FROM transaction_log
		WHERE tenant_id = $1 AND entity_kind = $2 AND entity_id = $3
		ORDER BY id ASC`,
		tenantID, entityKind, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transaction log for %s %s: %w", entityKind, entityID, err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.EntityKind, &e.EntityID, &e.Type, &e.ExternalSyncToken, &e.Diff, &e.WirePayload, &e.Source, &e.Actor, &e.Session, &e.Reason, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction log entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// QueryPage returns up to limit+1 entries for tenantID in commit order,
// starting strictly after (afterCreatedAt, afterID) when afterID is
// non-zero. The caller trims the extra row and uses its presence to decide
// whether a next page exists — the standard keyset-pagination pattern for
// an append-only, time-ordered table.
func (s *Store) QueryPage(ctx context.Context, tenantID uuid.UUID, afterCreatedAt time.Time, afterID int64, limit int) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, entity_kind, entity_id, type, external_sync_token, diff, wire_payload, source, actor, session, reason, metadata, created_at
		FROM transaction_log
		WHERE tenant_id = $1 AND ($2 = 0 OR (created_at, id) > ($3, $2))
		ORDER BY created_at ASC, id ASC
		LIMIT $4`,
		tenantID, afterID, afterCreatedAt, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transaction log page for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.EntityKind, &e.EntityID, &e.Type, &e.ExternalSyncToken, &e.Diff, &e.WirePayload, &e.Source, &e.Actor, &e.Session, &e.Reason, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction log entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
