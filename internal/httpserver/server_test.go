package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/data-steve/rowcol-sub001/pkg/jobs"
	"github.com/data-steve/rowcol-sub001/pkg/orchestrator"
	"github.com/data-steve/rowcol-sub001/pkg/tenant"
)

func withTestTenant(r *http.Request, tenantID uuid.UUID) *http.Request {
	info := &tenant.Info{ID: tenantID, Name: "test tenant", Environment: tenant.EnvironmentSandbox}
	return r.WithContext(tenant.NewContext(r.Context(), info))
}

func newTestRouter(jh *jobHandlers, ch *cacheHandlers) chi.Router {
	r := chi.NewRouter()
	r.Get("/jobs", jh.list)
	r.Get("/jobs/{id}", jh.get)
	r.Post("/jobs/{id}/cancel", jh.cancel)
	r.Post("/sync/trigger", jh.triggerSync)
	r.Get("/cache/stats", ch.stats)
	r.Post("/cache/clear", ch.clear)
	return r
}

func TestTriggerSyncEnqueuesJob(t *testing.T) {
	store := jobs.NewMemoryStore()
	jh := &jobHandlers{store: store}
	router := newTestRouter(jh, &cacheHandlers{})

	tenantID := uuid.New()
	body := bytes.NewBufferString(`{"due_days": 45, "aging_days": 120}`)
	req := withTestTenant(httptest.NewRequest(http.MethodPost, "/sync/trigger", body), tenantID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var j jobs.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &j); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if j.Function != jobs.FunctionStandardSync {
		t.Errorf("Function = %q, want %q", j.Function, jobs.FunctionStandardSync)
	}
	if j.Status != jobs.StatusPending {
		t.Errorf("Status = %q, want %q", j.Status, jobs.StatusPending)
	}

	var args jobs.StandardSyncArgs
	if err := json.Unmarshal(j.Arguments, &args); err != nil {
		t.Fatalf("decoding arguments: %v", err)
	}
	if args.DueDays != 45 || args.AgingDays != 120 {
		t.Errorf("args = %+v, want DueDays=45 AgingDays=120", args)
	}
}

func TestTriggerSyncRejectsInvalidArguments(t *testing.T) {
	store := jobs.NewMemoryStore()
	jh := &jobHandlers{store: store}
	router := newTestRouter(jh, &cacheHandlers{})

	body := bytes.NewBufferString(`{"due_days": 9999}`)
	req := withTestTenant(httptest.NewRequest(http.MethodPost, "/sync/trigger", body), uuid.New())
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
}

func TestJobLifecycleListGetCancel(t *testing.T) {
	store := jobs.NewMemoryStore()
	jh := &jobHandlers{store: store}
	router := newTestRouter(jh, &cacheHandlers{})

	tenantID := uuid.New()
	j, err := jobs.Enqueue(context.Background(), store, &tenantID, "standard-sync", "", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	listReq := withTestTenant(httptest.NewRequest(http.MethodGet, "/jobs", nil), tenantID)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d", listRec.Code)
	}
	var listed []*jobs.Job
	if err := json.Unmarshal(listRec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding list response: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != j.ID {
		t.Fatalf("listed = %+v, want single job %s", listed, j.ID)
	}

	getReq := withTestTenant(httptest.NewRequest(http.MethodGet, "/jobs/"+j.ID.String(), nil), tenantID)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d", getRec.Code)
	}

	cancelReq := withTestTenant(httptest.NewRequest(http.MethodPost, "/jobs/"+j.ID.String()+"/cancel", nil), tenantID)
	cancelRec := httptest.NewRecorder()
	router.ServeHTTP(cancelRec, cancelReq)
	if cancelRec.Code != http.StatusAccepted {
		t.Fatalf("cancel status = %d", cancelRec.Code)
	}

	cancelled, err := store.Get(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("Get() after cancel error = %v", err)
	}
	if cancelled.Status != jobs.StatusCancelled {
		t.Errorf("Status after cancel = %q, want %q", cancelled.Status, jobs.StatusCancelled)
	}
}

func TestJobGetUnknownIDReturnsNotFound(t *testing.T) {
	store := jobs.NewMemoryStore()
	jh := &jobHandlers{store: store}
	router := newTestRouter(jh, &cacheHandlers{})

	req := withTestTenant(httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.New().String(), nil), uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	orch := orchestrator.New(orchestrator.Config{
		Cache: orchestrator.CacheConfig{
			DataFetchTTL: time.Minute,
			OnDemandTTL:  time.Minute,
			ScheduledTTL: time.Minute,
		},
		Concurrency: 4,
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Second,
	}, slog.Default())

	ch := &cacheHandlers{orch: orch}
	router := newTestRouter(&jobHandlers{}, ch)

	statsReq := httptest.NewRequest(http.MethodGet, "/cache/stats?scope=tenant", nil)
	statsRec := httptest.NewRecorder()
	router.ServeHTTP(statsRec, statsReq)
	if statsRec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", statsRec.Code)
	}

	clearReq := httptest.NewRequest(http.MethodPost, "/cache/clear", bytes.NewBufferString(`{"scope":"tenant"}`))
	clearRec := httptest.NewRecorder()
	router.ServeHTTP(clearRec, clearReq)
	if clearRec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", clearRec.Code)
	}
}
