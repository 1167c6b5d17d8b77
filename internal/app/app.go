package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"golang.org/x/oauth2"

	"github.com/data-steve/rowcol-sub001/internal/config"
	"github.com/data-steve/rowcol-sub001/internal/httpserver"
	"github.com/data-steve/rowcol-sub001/internal/platform"
	"github.com/data-steve/rowcol-sub001/internal/telemetry"
	"github.com/data-steve/rowcol-sub001/pkg/credential"
	"github.com/data-steve/rowcol-sub001/pkg/jobs"
	"github.com/data-steve/rowcol-sub001/pkg/mirror"
	"github.com/data-steve/rowcol-sub001/pkg/orchestrator"
	"github.com/data-steve/rowcol-sub001/pkg/syncservice"
	"github.com/data-steve/rowcol-sub001/pkg/tenant"
	"github.com/data-steve/rowcol-sub001/pkg/transport"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

// Run is the main application entry point: it reads config, connects to
// infrastructure, and starts the mode named by cfg.Mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting rowcol-sync", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	if cfg.Mode == "migrate" {
		if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("migrations applied")
		return nil
	}

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	metricsReg := prometheus.NewRegistry()
	for _, c := range telemetry.All() {
		if err := metricsReg.Register(c); err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
	}

	deps, err := wireDeps(cfg, db, rdb, logger)
	if err != nil {
		return fmt.Errorf("wiring dependencies: %w", err)
	}

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg, deps)
	case "worker":
		return runWorker(ctx, cfg, logger, deps)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// deps bundles the control plane's wired dependencies, shared between the
// api and worker processes.
type deps struct {
	tenantStore  *tenant.Store
	credStore    *credential.Store
	credSvc      *credential.Service
	transport    *transport.Transport
	orch         *orchestrator.Orchestrator
	mirrorStore  *mirror.Store
	txnlogStore  *txnlog.Store
	jobStore     jobs.Store
	jobRunner    *jobs.Runner
	jobScheduler *jobs.Scheduler
}

func wireDeps(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger) (*deps, error) {
	tenantStore := tenant.NewStore(db)
	credStore := credential.NewStore(db)

	oauth2Cfg := oauth2.Config{
		ClientID:     cfg.LedgerOAuthClientID,
		ClientSecret: cfg.LedgerOAuthClientSecret,
		RedirectURL:  cfg.LedgerOAuthRedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.LedgerOAuthAuthURL,
			TokenURL: cfg.LedgerOAuthTokenURL,
		},
		Scopes: []string{"com.intuit.quickbooks.accounting"},
	}
	credSvc := credential.NewService(credStore, oauth2Cfg, cfg.CredentialsRefreshSkew(), logger)

	tr := transport.New(transport.Config{
		BaseURL:      cfg.LedgerAPIBaseURL,
		GlobalRPM:    cfg.RateLimitGlobalRPM,
		PerTenantRPM: cfg.RateLimitPerTenantRPM,
		ReadTimeout:  cfg.TransportReadTimeout(),
		FetchTimeout: cfg.TransportFetchTimeout(),
	}, credSvc, logger)

	orch := orchestrator.New(orchestrator.Config{
		Cache: orchestrator.CacheConfig{
			DataFetchTTL: time.Duration(cfg.CacheTTLDataFetchSec) * time.Second,
			OnDemandTTL:  time.Duration(cfg.CacheTTLOnDemandSec) * time.Second,
			ScheduledTTL: time.Duration(cfg.CacheTTLScheduledSec) * time.Second,
		},
		Concurrency: cfg.RateLimitPerTenantRPM,
		MaxAttempts: cfg.TransportMaxAttempts,
		BaseDelay:   time.Second,
		MaxDelay:    cfg.TransportMaxBackoff(),
	}, logger)

	mirrorStore := mirror.NewStore(db)
	txnlogStore := txnlog.NewStore(db)

	jobStore, err := newJobStore(cfg, rdb)
	if err != nil {
		return nil, err
	}

	factory := newServiceFactory(tenantStore, credStore, tr, orch, mirrorStore, txnlogStore, logger)

	runner := jobs.NewRunner(jobStore, jobs.RunnerConfig{
		Deadline:    cfg.JobsDefaultDeadline(),
		MaxAttempts: cfg.TransportMaxAttempts,
		BaseDelay:   time.Minute,
		MaxDelay:    cfg.JobsScheduledSyncInterval(),
	}, logger)
	runner.Register(jobs.FunctionStandardSync, jobs.NewStandardSyncHandler(factory, logger))

	scheduler := jobs.NewScheduler(jobStore, runner, jobs.SchedulerConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    20,
	}, logger)

	return &deps{
		tenantStore:  tenantStore,
		credStore:    credStore,
		credSvc:      credSvc,
		transport:    tr,
		orch:         orch,
		mirrorStore:  mirrorStore,
		txnlogStore:  txnlogStore,
		jobStore:     jobStore,
		jobRunner:    runner,
		jobScheduler: scheduler,
	}, nil
}

func newJobStore(cfg *config.Config, rdb *redis.Client) (jobs.Store, error) {
	switch cfg.JobsStorage {
	case "redis":
		return jobs.NewRedisStore(rdb), nil
	case "memory", "":
		return jobs.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown jobs storage backend: %s", cfg.JobsStorage)
	}
}

// newServiceFactory returns a jobs.ServiceFactory closing over the
// tenant-agnostic singletons, so pkg/jobs never needs to import
// pkg/credential/pkg/transport/pkg/mirror directly — it only constructs a
// tenant-bound syncservice.Service on demand.
func newServiceFactory(tenantStore *tenant.Store, credStore *credential.Store, tr *transport.Transport, orch *orchestrator.Orchestrator, mirrorStore *mirror.Store, txnlogStore *txnlog.Store, logger *slog.Logger) jobs.ServiceFactory {
	return func(ctx context.Context, tenantID uuid.UUID) (*syncservice.Service, error) {
		info, err := tenantStore.Get(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("loading tenant %s: %w", tenantID, err)
		}
		cred, err := credStore.Get(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("loading credential for tenant %s: %w", tenantID, err)
		}
		return syncservice.New(info, cred.RealmID, tr, orch, mirrorStore, txnlogStore, logger), nil
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, d *deps) error {
	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg, httpserver.Deps{
		TenantStore:  d.tenantStore,
		JobStore:     d.jobStore,
		Orchestrator: d.orch,
		MirrorStore:  d.mirrorStore,
		TxnLogStore:  d.txnlogStore,
	})

	go d.jobScheduler.Run(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, d *deps) error {
	logger.Info("worker started")
	d.jobScheduler.Run(ctx)
	return nil
}
