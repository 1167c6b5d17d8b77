package ledgererr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("wrapping: %w", New(KindRateLimited, "transport.Do", cause))

	kind, ok := KindOf(wrapped)
	if !ok {
		t.Fatal("expected KindOf to find a wrapped *Error")
	}
	if kind != KindRateLimited {
		t.Errorf("kind = %q, want %q", kind, KindRateLimited)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("expected KindOf to fail on a plain error")
	}
}

func TestIs(t *testing.T) {
	err := New(KindInvariantViolation, "mirror.Upsert", nil)
	if !Is(err, KindInvariantViolation) {
		t.Error("expected Is to match KindInvariantViolation")
	}
	if Is(err, KindTransient) {
		t.Error("expected Is not to match KindTransient")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindTransient, true},
		{KindRateLimited, true},
		{KindTokenInvalid, true},
		{KindCredentialsUnavailable, false},
		{KindValidation, false},
		{KindInvariantViolation, false},
		{KindCancelled, false},
		{KindPermanent, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := Retryable(tt.kind); got != tt.want {
				t.Errorf("Retryable(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(KindTransient, "transport.Do", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}
