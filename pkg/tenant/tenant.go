package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Environment identifies which external-ledger environment a tenant is wired to.
type Environment string

const (
	EnvironmentMock       Environment = "mock"
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// ConnectionStatus is the tenant's current relationship to the external ledger.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusExpired      ConnectionStatus = "expired"
	StatusError        ConnectionStatus = "error"
)

// Info holds the resolved tenant metadata for the current request or job.
// Unlike the schema-per-tenant model this is adapted from, there is no
// per-tenant schema or dedicated connection: isolation is row-level, every
// query carries tenant_id as a WHERE predicate (see pkg/mirror, pkg/txnlog).
type Info struct {
	ID          uuid.UUID
	Name        string
	Environment Environment
	Status      ConnectionStatus
}

type contextKey string

const infoKey contextKey = "tenant_info"

// NewContext stores tenant info in the context.
func NewContext(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, infoKey, info)
}

// FromContext extracts the tenant info from the context.
// Returns nil if no tenant is set.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(infoKey).(*Info)
	return v
}
