package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/data-steve/rowcol-sub001/pkg/tenant"
)

// mockExchange simulates a successful authorization-code exchange for
// tenants running in the mock environment, never calling the external
// ledger. Grounded on the original sync job's mock/sandbox/production
// environment branching: integration tests run against this path with no
// network access.
func (s *Service) mockExchange(ctx context.Context, t *tenant.Info, realmID string) (*Credential, error) {
	now := time.Now()
	cred := &Credential{
		TenantID:           t.ID,
		RealmID:            realmID,
		AccessToken:        fmt.Sprintf("mock_access_token_%d", now.Unix()),
		RefreshToken:       fmt.Sprintf("mock_refresh_token_%d", now.Unix()),
		AccessTokenExpiry:  now.Add(time.Hour),
		RefreshTokenExpiry: now.AddDate(1, 0, 0),
		LastRefreshTime:    now,
	}
	if err := s.store.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("storing mock credential: %w", err)
	}
	return cred, nil
}

// mockRefresh simulates a refresh for the mock environment: a new access
// token, same refresh token, no network call.
func (s *Service) mockRefresh(ctx context.Context, cred *Credential) (*Credential, error) {
	now := time.Now()
	updated := &Credential{
		TenantID:           cred.TenantID,
		RealmID:            cred.RealmID,
		AccessToken:        fmt.Sprintf("mock_access_token_%d", now.Unix()),
		RefreshToken:       cred.RefreshToken,
		AccessTokenExpiry:  now.Add(time.Hour),
		RefreshTokenExpiry: cred.RefreshTokenExpiry,
		LastRefreshTime:    now,
	}
	if err := s.store.Upsert(ctx, updated); err != nil {
		return nil, fmt.Errorf("storing mock refreshed credential: %w", err)
	}
	return updated, nil
}
