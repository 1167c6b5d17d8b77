package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides raw-SQL access to the public.tenants table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a tenant Store backed by the given global pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const tenantColumns = "id, name, environment, status"

func scanTenantRow(row pgx.Row) (*Info, error) {
	var info Info
	if err := row.Scan(&info.ID, &info.Name, &info.Environment, &info.Status); err != nil {
		return nil, err
	}
	return &info, nil
}

// Get retrieves a tenant by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Info, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = $1",
		id,
	)
	info, err := scanTenantRow(row)
	if err != nil {
		return nil, fmt.Errorf("getting tenant %s: %w", id, err)
	}
	return info, nil
}

// Create inserts a new tenant, defaulting to disconnected status.
func (s *Store) Create(ctx context.Context, name string, env Environment) (*Info, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tenants (id, name, environment, status)
		 VALUES (gen_random_uuid(), $1, $2, $3)
		 RETURNING `+tenantColumns,
		name, env, StatusDisconnected,
	)
	info, err := scanTenantRow(row)
	if err != nil {
		return nil, fmt.Errorf("creating tenant %q: %w", name, err)
	}
	return info, nil
}

// UpdateStatus transitions a tenant's connection status (mutated by pkg/credential).
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status ConnectionStatus) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE tenants SET status = $2 WHERE id = $1",
		id, status,
	)
	if err != nil {
		return fmt.Errorf("updating tenant %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating tenant %s status: %w", id, ErrNotFound)
	}
	return nil
}

// List returns all tenants ordered by name. No component in this module
// calls it.
func (s *Store) List(ctx context.Context) ([]*Info, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+tenantColumns+" FROM tenants ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var out []*Info
	for rows.Next() {
		info, err := scanTenantRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant row: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tenants: %w", err)
	}
	return out, nil
}

// ListConnected returns every tenant currently connected to the external
// ledger, ordered by name. No component in this module calls it; the
// standard-sync job is enqueued per request, not per connected tenant.
func (s *Store) ListConnected(ctx context.Context) ([]*Info, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE status = $1 ORDER BY name",
		StatusConnected,
	)
	if err != nil {
		return nil, fmt.Errorf("listing connected tenants: %w", err)
	}
	defer rows.Close()

	var out []*Info
	for rows.Next() {
		info, err := scanTenantRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant row: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connected tenants: %w", err)
	}
	return out, nil
}
