package httpserver

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/data-steve/rowcol-sub001/internal/config"
	"github.com/data-steve/rowcol-sub001/internal/version"
	"github.com/data-steve/rowcol-sub001/pkg/jobs"
	"github.com/data-steve/rowcol-sub001/pkg/mirror"
	"github.com/data-steve/rowcol-sub001/pkg/orchestrator"
	"github.com/data-steve/rowcol-sub001/pkg/tenant"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

// Server holds the HTTP server dependencies.
type Server struct {
	Router    *chi.Mux
	APIRouter chi.Router // tenant-scoped /api/v1 sub-router
	Logger    *slog.Logger
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Metrics   *prometheus.Registry
	startedAt time.Time
}

// Deps bundles the constructed dependencies NewServer wires into route handlers.
type Deps struct {
	TenantStore  *tenant.Store
	JobStore     jobs.Store
	Orchestrator *orchestrator.Orchestrator
	MirrorStore  *mirror.Store
	TxnLogStore  *txnlog.Store
}

// NewServer builds the consumer-facing API: health/metrics surfaces, a
// tenant-scoped /api/v1 sub-router, and the job/cache admin endpoints this
// control plane exposes on top of the sync engine.
func NewServer(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, deps Deps) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		DB:        db,
		Redis:     rdb,
		Metrics:   metricsReg,
		startedAt: time.Now(),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Unauthenticated health/metrics endpoints.
	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)
	s.Router.Get("/status", s.HandleStatus)
	s.Router.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(tenant.Middleware(deps.TenantStore, tenant.HeaderResolver{}, logger))

		r.Get("/ping", handlePing)

		jh := &jobHandlers{store: deps.JobStore}
		r.Get("/jobs", jh.list)
		r.Get("/jobs/{id}", jh.get)
		r.Post("/jobs/{id}/cancel", jh.cancel)
		r.Post("/sync/trigger", jh.triggerSync)

		ch := &cacheHandlers{orch: deps.Orchestrator}
		r.Get("/cache/stats", ch.stats)
		r.Post("/cache/clear", ch.clear)

		eh := &entityHandlers{mirror: deps.MirrorStore}
		r.Get("/entities/{kind}", eh.list)

		lh := &logHandlers{txlog: deps.TxnLogStore}
		r.Get("/log", lh.list)

		s.APIRouter = r
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("readiness check: database ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "database not ready")
		return
	}

	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Logger.Error("readiness check: redis ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "redis not ready")
		return
	}

	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusResponse is the JSON shape returned by HandleStatus.
type statusResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	CommitSHA       string  `json:"commit_sha"`
	Uptime          string  `json:"uptime"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	Database        string  `json:"database"`
	DatabaseLatency float64 `json:"database_latency_ms"`
	Redis           string  `json:"redis"`
	RedisLatency    float64 `json:"redis_latency_ms"`
}

// HandleStatus reports DB/Redis connectivity and process uptime. Unlike the
// per-tenant alert timestamp the teacher's status endpoint surfaced, this
// control plane has no single tenant in scope at this path, so status stays
// at the infrastructure level; per-tenant sync freshness is a job query.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uptime := time.Since(s.startedAt)

	resp := statusResponse{
		Version:       version.Version,
		CommitSHA:     version.Commit,
		Uptime:        uptime.Truncate(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
	}

	dbStart := time.Now()
	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("status check: database ping failed", "error", err)
		resp.Database = "error"
	} else {
		resp.Database = "ok"
	}
	resp.DatabaseLatency = math.Round(float64(time.Since(dbStart).Microseconds())/10) / 100

	redisStart := time.Now()
	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Logger.Error("status check: redis ping failed", "error", err)
		resp.Redis = "error"
	} else {
		resp.Redis = "ok"
	}
	resp.RedisLatency = math.Round(float64(time.Since(redisStart).Microseconds())/10) / 100

	if resp.Database == "ok" && resp.Redis == "ok" {
		resp.Status = "ok"
	} else {
		resp.Status = "degraded"
	}

	Respond(w, http.StatusOK, resp)
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	info := tenant.FromContext(r.Context())
	Respond(w, http.StatusOK, map[string]string{
		"tenant":      info.ID.String(),
		"name":        info.Name,
		"environment": string(info.Environment),
	})
}

// jobHandlers exposes the job admin surface (list/get/cancel) and a manual
// per-tenant sync trigger on top of pkg/jobs.
type jobHandlers struct {
	store jobs.Store
}

func (h *jobHandlers) list(w http.ResponseWriter, r *http.Request) {
	info := tenant.FromContext(r.Context())
	f := jobs.Filter{
		TenantID: &info.ID,
		Status:   jobs.Status(r.URL.Query().Get("status")),
		Function: r.URL.Query().Get("function"),
	}

	results, err := h.store.ListByFilter(r.Context(), f)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "internal", "listing jobs")
		return
	}
	Respond(w, http.StatusOK, results)
}

func (h *jobHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid job id")
		return
	}

	j, err := h.store.Get(r.Context(), id)
	if err != nil {
		RespondError(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	Respond(w, http.StatusOK, j)
}

func (h *jobHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid job id")
		return
	}

	if err := jobs.Cancel(r.Context(), h.store, id); err != nil {
		RespondError(w, http.StatusInternalServerError, "internal", "cancelling job")
		return
	}
	Respond(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

type triggerSyncRequest struct {
	DueDays   int    `json:"due_days" validate:"gte=0,lte=365"`
	AgingDays int    `json:"aging_days" validate:"gte=0,lte=365"`
	RequestID string `json:"request_id" validate:"omitempty,max=255"`
}

func (h *jobHandlers) triggerSync(w http.ResponseWriter, r *http.Request) {
	info := tenant.FromContext(r.Context())

	var req triggerSyncRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid request body")
			return
		}
	}
	if req.DueDays == 0 {
		req.DueDays = 30
	}
	if req.AgingDays == 0 {
		req.AgingDays = 90
	}
	if errs := Validate(req); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	args, err := json.Marshal(jobs.StandardSyncArgs{DueDays: req.DueDays, AgingDays: req.AgingDays})
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "internal", "encoding job arguments")
		return
	}

	j, err := jobs.Enqueue(r.Context(), h.store, &info.ID, jobs.FunctionStandardSync, req.RequestID, args)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "internal", "enqueuing sync job")
		return
	}
	Respond(w, http.StatusAccepted, j)
}

// cacheHandlers exposes the orchestrator's cache-control surface.
type cacheHandlers struct {
	orch *orchestrator.Orchestrator
}

func (h *cacheHandlers) stats(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	Respond(w, http.StatusOK, map[string]int{"entries": h.orch.CacheStats(scope)})
}

type clearCacheRequest struct {
	Scope     string `json:"scope"`
	Operation string `json:"operation"`
}

func (h *cacheHandlers) clear(w http.ResponseWriter, r *http.Request) {
	var req clearCacheRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid request body")
			return
		}
	}

	prefix := req.Scope
	if req.Operation != "" {
		prefix += ":" + req.Operation
	}
	h.orch.ClearCache(prefix)
	Respond(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// entityHandlers exposes read-only, paginated access to the mirrored entity
// tables, one endpoint covering every kind pkg/mirror knows about.
type entityHandlers struct {
	mirror *mirror.Store
}

func (h *entityHandlers) list(w http.ResponseWriter, r *http.Request) {
	info := tenant.FromContext(r.Context())
	kind := mirror.Kind(chi.URLParam(r, "kind"))

	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	params, err := ParseOffsetParams(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	rows, err := h.mirror.List(r.Context(), kind, info.ID, includeInactive)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	total := len(rows)
	start := params.Offset
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}

	Respond(w, http.StatusOK, NewOffsetPage(rows[start:end], params, total))
}

// logHandlers exposes the append-only transaction log as a cursor-paginated,
// tenant-scoped stream: the one list endpoint where offset pagination would
// drift under concurrent inserts, since new entries only ever append.
type logHandlers struct {
	txlog *txnlog.Store
}

func (h *logHandlers) list(w http.ResponseWriter, r *http.Request) {
	info := tenant.FromContext(r.Context())

	params, err := ParseCursorParams(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	var afterCreatedAt time.Time
	var afterID int64
	if params.After != nil {
		afterCreatedAt = params.After.CreatedAt
		afterID = params.After.ID
	}

	entries, err := h.txlog.QueryPage(r.Context(), info.ID, afterCreatedAt, afterID, params.Limit+1)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	page := NewCursorPage(entries, params.Limit, func(e *txnlog.Entry) Cursor {
		return Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	Respond(w, http.StatusOK, page)
}
