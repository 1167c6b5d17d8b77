package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides raw-SQL access to the credentials table, one row per tenant.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a credential Store backed by the given global pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const credentialColumns = "tenant_id, realm_id, access_token, refresh_token, access_token_expiry, refresh_token_expiry, last_refresh_time"

func scanCredentialRow(row pgx.Row) (*Credential, error) {
	var c Credential
	var lastRefresh *time.Time
	if err := row.Scan(
		&c.TenantID, &c.RealmID, &c.AccessToken, &c.RefreshToken,
		&c.AccessTokenExpiry, &c.RefreshTokenExpiry, &lastRefresh,
	); err != nil {
		return nil, err
	}
	if lastRefresh != nil {
		c.LastRefreshTime = *lastRefresh
	}
	return &c, nil
}

// Get retrieves the credential for a tenant. Returns ErrNotConnected if the
// tenant has never completed the OAuth2 flow.
func (s *Store) Get(ctx context.Context, tenantID uuid.UUID) (*Credential, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+credentialColumns+" FROM credentials WHERE tenant_id = $1",
		tenantID,
	)
	c, err := scanCredentialRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("getting credential for tenant %s: %w", tenantID, ErrNotConnected)
		}
		return nil, fmt.Errorf("getting credential for tenant %s: %w", tenantID, err)
	}
	return c, nil
}

// Upsert stores (or replaces) the credential for a tenant. Called after a
// successful code exchange or token refresh.
func (s *Store) Upsert(ctx context.Context, c *Credential) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO credentials (tenant_id, realm_id, access_token, refresh_token, access_token_expiry, refresh_token_expiry, last_refresh_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		   realm_id = EXCLUDED.realm_id,
		   access_token = EXCLUDED.access_token,
		   refresh_token = EXCLUDED.refresh_token,
		   access_token_expiry = EXCLUDED.access_token_expiry,
		   refresh_token_expiry = EXCLUDED.refresh_token_expiry,
		   last_refresh_time = EXCLUDED.last_refresh_time`,
		c.TenantID, c.RealmID, c.AccessToken, c.RefreshToken,
		c.AccessTokenExpiry, c.RefreshTokenExpiry, c.LastRefreshTime,
	)
	if err != nil {
		return fmt.Errorf("upserting credential for tenant %s: %w", c.TenantID, err)
	}
	return nil
}

// Revoke deletes a tenant's stored credential, used when the tenant
// disconnects or the refresh token is rejected as permanently invalid.
func (s *Store) Revoke(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM credentials WHERE tenant_id = $1", tenantID); err != nil {
		return fmt.Errorf("revoking credential for tenant %s: %w", tenantID, err)
	}
	return nil
}
