package tenant

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Resolver identifies the tenant id for the current request.
type Resolver interface {
	Resolve(r *http.Request) (uuid.UUID, error)
}

// HeaderResolver resolves the tenant from the X-Tenant-ID header.
// Intended for the dev/consumer harness; a production deployment embedding
// this core behind an end-user surface would resolve tenant id from an
// upstream-authenticated session instead.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-Tenant-ID")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing X-Tenant-ID header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing X-Tenant-ID: %w", err)
	}
	return id, nil
}

// Middleware resolves the tenant for the request and stores its Info in the
// context. Unlike the teacher's schema-per-tenant middleware, it never
// acquires a dedicated connection or sets search_path — row-level isolation
// means every downstream query carries tenant_id explicitly.
func Middleware(store *Store, resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(r)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "tenant resolution failed")
				return
			}

			info, err := store.Get(r.Context(), id)
			if err != nil {
				logger.Warn("tenant not found", "tenant_id", id, "error", err)
				respondError(w, http.StatusUnauthorized, "unauthorized", "unknown tenant")
				return
			}

			ctx := NewContext(r.Context(), info)

			logger.Debug("tenant resolved", "tenant_id", info.ID, "environment", info.Environment)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, errStr, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":%q,"message":%q}`, errStr, message)))
}
