// Package transport implements the single outbound HTTP client permitted to
// speak to the external ledger. Every other component reaches the network
// through here: it enforces global and per-tenant request quotas, classifies
// responses into retry-relevant kinds, and trips a circuit breaker when the
// ledger is consistently failing.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/data-steve/rowcol-sub001/internal/telemetry"
	"github.com/data-steve/rowcol-sub001/pkg/credential"
	"github.com/data-steve/rowcol-sub001/pkg/ledgererr"
	"github.com/data-steve/rowcol-sub001/pkg/tenant"
)

// Operation describes one bound call against the external ledger, relative
// to {base}/{realm-id}.
type Operation struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	// Fetch marks bulk-read operations, which use the longer of the two
	// configured timeouts.
	Fetch bool
}

// Result is a classified response body, available to callers regardless of
// whether the call is ultimately treated as success or failure.
type Result struct {
	StatusCode int
	Body       []byte
	Class      Classification
	RetryAfter time.Duration
}

// Config bounds Transport's behavior; all fields have spec-mandated defaults
// applied by internal/config.
type Config struct {
	BaseURL       string
	GlobalRPM     int
	PerTenantRPM  int
	ReadTimeout   time.Duration
	FetchTimeout  time.Duration
}

// Transport is the sole HTTP client speaking to the external ledger.
type Transport struct {
	cfg         Config
	httpClient  *http.Client
	limiters    *limiterPair
	credentials *credential.Service
	breaker     circuitbreaker.CircuitBreaker[*http.Response]
	logger      *slog.Logger
}

// New constructs a Transport.
func New(cfg Config, credentials *credential.Service, logger *slog.Logger) *Transport {
	breaker := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(15 * time.Second).
		WithSuccessThreshold(1).
		HandleIf(func(resp *http.Response, err error) bool {
			return Classify(resp, err) == ClassTransient
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			telemetry.CircuitBreakerStateChanges.WithLabelValues(event.NewState.String()).Inc()
		}).
		Build()

	return &Transport{
		cfg:         cfg,
		httpClient:  &http.Client{},
		limiters:    newLimiterPair(cfg.GlobalRPM, cfg.PerTenantRPM),
		credentials: credentials,
		breaker:     breaker,
		logger:      logger,
	}
}

// Execute performs one classified call against the external ledger on
// behalf of tenant t. It does not retry transient or rate-limited failures
// itself (the orchestrator applies that policy) but does perform the
// single forced-refresh retry the contract mandates on a 401.
func (tr *Transport) Execute(ctx context.Context, t *tenant.Info, realmID string, op Operation) (*Result, error) {
	waitStart := time.Now()
	if err := tr.limiters.wait(ctx, t.ID); err != nil {
		return nil, ledgererr.New(ledgererr.KindCancelled, "transport.Execute", fmt.Errorf("waiting for rate limit permit: %w", err))
	}
	telemetry.RateLimitWaitSeconds.WithLabelValues("tenant").Observe(time.Since(waitStart).Seconds())

	token, err := tr.credentials.GetValidToken(ctx, t)
	if err != nil {
		return nil, err
	}

	result, err := tr.do(ctx, token, realmID, op)
	if err != nil {
		return nil, err
	}

	if result.Class == ClassTokenInvalid {
		telemetry.TransportRetriesTotal.WithLabelValues("token_invalid").Inc()
		refreshed, rerr := tr.credentials.ForceRefresh(ctx, t)
		if rerr != nil {
			return nil, rerr
		}
		result, err = tr.do(ctx, refreshed, realmID, op)
		if err != nil {
			return nil, err
		}
		if result.Class == ClassTokenInvalid {
			return nil, ledgererr.New(ledgererr.KindTokenInvalid, "transport.Execute", fmt.Errorf("credentials-expired for tenant %s", t.ID))
		}
	}

	return result, tr.classificationError(result)
}

func (tr *Transport) do(ctx context.Context, token, realmID string, op Operation) (*Result, error) {
	timeout := tr.cfg.ReadTimeout
	if op.Fetch {
		timeout = tr.cfg.FetchTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullURL := fmt.Sprintf("%s/%s%s", tr.cfg.BaseURL, realmID, op.Path)
	if len(op.Query) > 0 {
		fullURL += "?" + op.Query.Encode()
	}

	var body io.Reader
	if op.Body != nil {
		body = bytes.NewReader(op.Body)
	}

	req, err := http.NewRequestWithContext(reqCtx, op.Method, fullURL, body)
	if err != nil {
		return nil, ledgererr.New(ledgererr.KindPermanent, "transport.do", fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if op.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := failsafe.With(tr.breaker).WithContext(reqCtx).Get(func() (*http.Response, error) {
		return tr.httpClient.Do(req)
	})
	class := Classify(resp, err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ledgererr.New(ledgererr.KindCancelled, "transport.do", err)
		}
		return &Result{Class: class}, nil
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, ledgererr.New(ledgererr.KindTransient, "transport.do", fmt.Errorf("reading response body: %w", readErr))
	}

	retryAfter, _ := RetryAfter(resp)
	return &Result{StatusCode: resp.StatusCode, Body: data, Class: class, RetryAfter: retryAfter}, nil
}

// classificationError turns a non-success classification into the
// corresponding ledgererr.Kind, leaving retry decisions to the caller.
func (tr *Transport) classificationError(r *Result) error {
	switch r.Class {
	case ClassSuccess:
		return nil
	case ClassRateLimited:
		telemetry.TransportRetriesTotal.WithLabelValues("rate_limited").Inc()
		rateErr := ledgererr.New(ledgererr.KindRateLimited, "transport.Execute", fmt.Errorf("external ledger rate limit hit, status %d", r.StatusCode))
		rateErr.RetryAfter = r.RetryAfter
		return rateErr
	case ClassTransient:
		telemetry.TransportRetriesTotal.WithLabelValues("server_error").Inc()
		return ledgererr.New(ledgererr.KindTransient, "transport.Execute", fmt.Errorf("transient failure, status %d", r.StatusCode))
	case ClassTokenInvalid:
		return ledgererr.New(ledgererr.KindTokenInvalid, "transport.Execute", fmt.Errorf("token invalid, status %d", r.StatusCode))
	default:
		return ledgererr.New(ledgererr.KindPermanent, "transport.Execute", fmt.Errorf("permanent failure, status %d", r.StatusCode))
	}
}
