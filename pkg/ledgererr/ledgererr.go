// Package ledgererr defines the error taxonomy shared by every component of
// the synchronization core. Callers classify failures with errors.As against
// *Error, never by string-matching messages.
package ledgererr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies why an operation failed, driving retry and alerting policy.
type Kind string

const (
	// KindTransient covers network errors, timeouts, and 5xx responses from
	// the external ledger — safe to retry with backoff.
	KindTransient Kind = "transient"
	// KindRateLimited means the external ledger's quota was exceeded (429).
	// Retry after the advertised or computed backoff.
	KindRateLimited Kind = "rate-limited"
	// KindTokenInvalid means the access token was rejected (401) and a
	// refresh is required before retrying.
	KindTokenInvalid Kind = "token-invalid"
	// KindCredentialsUnavailable means no usable credential exists for the
	// tenant (never connected, or refresh token itself expired).
	KindCredentialsUnavailable Kind = "credentials-unavailable"
	// KindValidation means the caller supplied malformed input; retrying
	// without changing the input will not help.
	KindValidation Kind = "validation"
	// KindInvariantViolation means a data invariant would be broken by the
	// operation (e.g. a stale sync token) — a sign of a concurrency bug or
	// a conflicting concurrent write, not a transient condition.
	KindInvariantViolation Kind = "invariant-violation"
	// KindCancelled means the caller's context was cancelled or timed out.
	KindCancelled Kind = "cancelled"
	// KindPermanent means the external ledger rejected the operation in a
	// way that will never succeed on retry (e.g. 404 on a deleted entity).
	KindPermanent Kind = "permanent"
)

// Error is the typed error wrapped by every component boundary in the core.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "credential.Refresh"
	Err  error  // the underlying cause, may be nil

	// RetryAfter is the external ledger's advertised wait before retrying,
	// parsed from a Retry-After response header. Zero means none was given
	// and the caller should fall back to its own backoff policy. Only ever
	// set on KindRateLimited errors.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether target has the given Kind, unwrapping nested *Error values.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning ("", false) if err is not (or
// does not wrap) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Retryable reports whether an error of this kind is worth retrying given
// enough time/backoff. Invariant violations, validation errors, permanent
// rejections, and cancellations are not.
func Retryable(kind Kind) bool {
	switch kind {
	case KindTransient, KindRateLimited, KindTokenInvalid:
		return true
	default:
		return false
	}
}
