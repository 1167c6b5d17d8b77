package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
	"github.com/data-steve/rowcol-sub001/pkg/tenant"
)

// Service implements the Credential Store (C1): OAuth2 authorization-code
// exchange and refresh-before-expiry, serialized per tenant with
// singleflight so concurrent callers never race to refresh the same
// refresh token.
type Service struct {
	store     *Store
	oauth2Cfg oauth2.Config
	skew      time.Duration
	logger    *slog.Logger
	refreshSF singleflight.Group
}

// NewService creates a credential Service.
func NewService(store *Store, oauth2Cfg oauth2.Config, refreshSkew time.Duration, logger *slog.Logger) *Service {
	return &Service{store: store, oauth2Cfg: oauth2Cfg, skew: refreshSkew, logger: logger}
}

// AuthCodeURL returns the external ledger's authorization URL, embedding
// state for CSRF protection.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth2Cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode completes the authorization-code flow: exchanges code for an
// access/refresh token pair and stores the result. realmID is the external
// ledger's company id, returned alongside the code in the callback query string.
func (s *Service) ExchangeCode(ctx context.Context, t *tenant.Info, realmID, code string) (*Credential, error) {
	if environmentOf(t) == tenant.EnvironmentMock {
		return s.mockExchange(ctx, t, realmID)
	}

	tok, err := s.oauth2Cfg.Exchange(ctx, code)
	if err != nil {
		return nil, ledgererr.New(ledgererr.KindTransient, "credential.ExchangeCode", fmt.Errorf("exchanging authorization code: %w", err))
	}

	cred := &Credential{
		TenantID:          t.ID,
		RealmID:           realmID,
		AccessToken:       tok.AccessToken,
		RefreshToken:      tok.RefreshToken,
		AccessTokenExpiry: tok.Expiry,
		LastRefreshTime:   time.Now(),
	}
	if err := s.store.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("storing exchanged credential: %w", err)
	}
	return cred, nil
}

// GetValidToken returns an access token usable right now, refreshing first
// if the stored token is within skew of expiry.
func (s *Service) GetValidToken(ctx context.Context, t *tenant.Info) (string, error) {
	cred, err := s.store.Get(ctx, t.ID)
	if err != nil {
		return "", ledgererr.New(ledgererr.KindCredentialsUnavailable, "credential.GetValidToken", err)
	}

	if !cred.Expired(time.Now(), s.skew) {
		return cred.AccessToken, nil
	}

	refreshed, err := s.refresh(ctx, t, cred)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// ForceRefresh discards the cached access token and refreshes unconditionally.
// Used by the transport after a 401: the cached token may look unexpired but
// the external ledger has already rejected it.
func (s *Service) ForceRefresh(ctx context.Context, t *tenant.Info) (string, error) {
	cred, err := s.store.Get(ctx, t.ID)
	if err != nil {
		return "", ledgererr.New(ledgererr.KindCredentialsUnavailable, "credential.ForceRefresh", err)
	}
	refreshed, err := s.refresh(ctx, t, cred)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// refresh performs (or joins an in-flight) token refresh for the tenant.
func (s *Service) refresh(ctx context.Context, t *tenant.Info, cred *Credential) (*Credential, error) {
	v, err, _ := s.refreshSF.Do(t.ID.String(), func() (any, error) {
		return s.doRefresh(ctx, t, cred)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credential), nil
}

func (s *Service) doRefresh(ctx context.Context, t *tenant.Info, cred *Credential) (*Credential, error) {
	if cred.RefreshTokenExpired(time.Now()) {
		return nil, ledgererr.New(ledgererr.KindCredentialsUnavailable, "credential.refresh", fmt.Errorf("refresh token expired for tenant %s", t.ID))
	}

	if environmentOf(t) == tenant.EnvironmentMock {
		return s.mockRefresh(ctx, cred)
	}

	src := s.oauth2Cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, ledgererr.New(ledgererr.KindTokenInvalid, "credential.refresh", fmt.Errorf("refreshing token for tenant %s: %w", t.ID, err))
	}

	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken // not every refresh rotates the refresh token
	}

	updated := &Credential{
		TenantID:           t.ID,
		RealmID:            cred.RealmID,
		AccessToken:        tok.AccessToken,
		RefreshToken:       refreshToken,
		AccessTokenExpiry:  tok.Expiry,
		RefreshTokenExpiry: cred.RefreshTokenExpiry,
		LastRefreshTime:    time.Now(),
	}
	if err := s.store.Upsert(ctx, updated); err != nil {
		return nil, fmt.Errorf("storing refreshed credential: %w", err)
	}
	s.logger.Info("credential refreshed", "tenant_id", t.ID)
	return updated, nil
}
