// Package credential implements the Credential Store (C1): per-tenant OAuth2
// token storage and refresh-before-expiry for the external ledger connection.
package credential

import (
	"time"

	"github.com/google/uuid"

	"github.com/data-steve/rowcol-sub001/pkg/tenant"
)

// Credential holds one tenant's external-ledger OAuth2 tokens.
type Credential struct {
	TenantID           uuid.UUID
	RealmID            string
	AccessToken        string
	RefreshToken       string
	AccessTokenExpiry  time.Time
	RefreshTokenExpiry time.Time
	LastRefreshTime    time.Time
}

// Expired reports whether the access token has already expired or will
// expire within skew of now.
func (c *Credential) Expired(now time.Time, skew time.Duration) bool {
	return now.Add(skew).After(c.AccessTokenExpiry)
}

// RefreshTokenExpired reports whether the refresh token itself can no longer
// be used, meaning the tenant must re-authorize from scratch.
func (c *Credential) RefreshTokenExpired(now time.Time) bool {
	return !c.RefreshTokenExpiry.IsZero() && now.After(c.RefreshTokenExpiry)
}

// environmentOf is a small helper so callers don't need to thread a second
// tenant lookup just to decide whether to take the mock branch.
func environmentOf(t *tenant.Info) tenant.Environment {
	if t == nil {
		return tenant.EnvironmentSandbox
	}
	return t.Environment
}
