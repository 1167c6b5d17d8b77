package transport

import (
	"net/http"
	"strconv"
	"time"
)

// Classification is the outcome of inspecting an HTTP response (or the
// transport error that prevented one) against the external ledger's
// contract. The transport only classifies; retry policy lives above it.
type Classification string

const (
	ClassSuccess     Classification = "success"
	ClassTokenInvalid Classification = "token-invalid"
	ClassRateLimited Classification = "rate-limited"
	ClassTransient   Classification = "transient"
	ClassPermanent   Classification = "permanent"
)

// Classify maps a response/error pair to a Classification per the external
// ledger contract: 2xx success, 401 token-invalid, 429 rate-limited, 5xx or
// network failure transient, any other 4xx permanent.
func Classify(resp *http.Response, err error) Classification {
	if err != nil {
		return ClassTransient
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return ClassSuccess
	case resp.StatusCode == http.StatusUnauthorized:
		return ClassTokenInvalid
	case resp.StatusCode == http.StatusTooManyRequests:
		return ClassRateLimited
	case resp.StatusCode >= 500:
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// RetryAfter parses the Retry-After header (seconds or HTTP-date form). It
// returns ok=false when the header is absent or unparseable, leaving the
// caller to fall back to its own backoff schedule.
func RetryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if when, err := http.ParseTime(raw); err == nil {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
