package credential

import (
	"testing"
	"time"
)

func TestCredentialExpired(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	skew := 5 * time.Minute

	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"well in the future", now.Add(time.Hour), false},
		{"within skew", now.Add(2 * time.Minute), true},
		{"already past", now.Add(-time.Minute), true},
		{"exactly at skew boundary", now.Add(skew), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{AccessTokenExpiry: tt.expiry}
			if got := c.Expired(now, skew); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentialRefreshTokenExpired(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	t.Run("zero value never expires", func(t *testing.T) {
		c := &Credential{}
		if c.RefreshTokenExpired(now) {
			t.Error("expected zero-value refresh expiry to mean no expiry")
		}
	})

	t.Run("past expiry", func(t *testing.T) {
		c := &Credential{RefreshTokenExpiry: now.Add(-time.Hour)}
		if !c.RefreshTokenExpired(now) {
			t.Error("expected refresh token to be expired")
		}
	})

	t.Run("future expiry", func(t *testing.T) {
		c := &Credential{RefreshTokenExpiry: now.Add(time.Hour)}
		if c.RefreshTokenExpired(now) {
			t.Error("expected refresh token not to be expired")
		}
	})
}
