// Package syncservice implements the Sync Service (C7): a per-tenant facade
// composing the credential, transport, orchestrator, mirror, and
// transaction log layers into the method set higher layers actually call.
// Every read goes cache-check → transport-on-miss → normalize → mirror
// upsert → log append → return; every write goes serialize → transport
// (immediate strategy) → on success, mirror update and log append in one
// local transaction.
package syncservice

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/data-steve/rowcol-sub001/pkg/mirror"
	"github.com/data-steve/rowcol-sub001/pkg/orchestrator"
	"github.com/data-steve/rowcol-sub001/pkg/tenant"
	"github.com/data-steve/rowcol-sub001/pkg/transport"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

// Service is the per-tenant facade. One instance is constructed per request
// or job; it is not itself goroutine-shared state (the pool, orchestrator,
// and transport it wraps are).
type Service struct {
	tenant  *tenant.Info
	realmID string

	transport *transport.Transport
	orch      *orchestrator.Orchestrator
	mirror    *mirror.Store
	txlog     *txnlog.Store

	log *slog.Logger
}

// New constructs a Service bound to one tenant and its external ledger
// realm. The mirror and transaction log stores carry their own database
// handle (a shared pool); syncservice never opens its own connections.
func New(t *tenant.Info, realmID string, tr *transport.Transport, orch *orchestrator.Orchestrator, mirrorStore *mirror.Store, txlogStore *txnlog.Store, logger *slog.Logger) *Service {
	return &Service{
		tenant:    t,
		realmID:   realmID,
		transport: tr,
		orch:      orch,
		mirror:    mirrorStore,
		txlog:     txlogStore,
		log:       logger,
	}
}

// cacheKey builds the orchestrator cache key: tenant id, operation name,
// and a hash of the operation's arguments, per the CacheEntry key shape.
func (s *Service) cacheKey(op string, args ...string) string {
	return fmt.Sprintf("%s:%s:%s", s.tenant.ID, op, argsHash(args))
}

func argsHash(args []string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.Join(args, "\x1f")))
	return fmt.Sprintf("%x", h.Sum64())
}

// HealthCheck pings the external ledger's company info endpoint to confirm
// the tenant's credentials and the ledger itself are reachable, without
// touching the mirror or transaction log.
func (s *Service) HealthCheck(ctx context.Context) (bool, error) {
	key := s.cacheKey("health-check")
	val, err := s.orch.Execute(ctx, key, orchestrator.StrategyOnDemand, orchestrator.PriorityMedium, func(ctx context.Context) (any, error) {
		_, err := s.transport.Execute(ctx, s.tenant, s.realmID, transport.Operation{
			Method: "GET",
			Path:   "/companyinfo/" + s.realmID,
		})
		return err == nil, err
	})
	if err != nil {
		return false, err
	}
	return val.(bool), nil
}
