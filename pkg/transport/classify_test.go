package transport

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   Classification
	}{
		{"200 ok", 200, nil, ClassSuccess},
		{"201 created", 201, nil, ClassSuccess},
		{"401 unauthorized", 401, nil, ClassTokenInvalid},
		{"429 too many requests", 429, nil, ClassRateLimited},
		{"500 internal error", 500, nil, ClassTransient},
		{"503 unavailable", 503, nil, ClassTransient},
		{"404 not found", 404, nil, ClassPermanent},
		{"network error", 0, errors.New("connection reset"), ClassTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.err == nil {
				resp = &http.Response{StatusCode: tt.status, Header: http.Header{}}
			}
			if got := Classify(resp, tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"30"}}}
	d, ok := RetryAfter(resp)
	if !ok || d != 30*time.Second {
		t.Errorf("RetryAfter() = %v, %v; want 30s, true", d, ok)
	}
}

func TestRetryAfterMissing(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	_, ok := RetryAfter(resp)
	if ok {
		t.Error("expected ok=false when Retry-After absent")
	}
}

func TestRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	resp := &http.Response{Header: http.Header{"Retry-After": []string{future}}}
	d, ok := RetryAfter(resp)
	if !ok || d <= 0 {
		t.Errorf("RetryAfter() = %v, %v; want positive duration, true", d, ok)
	}
}
