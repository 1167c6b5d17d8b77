package ledgerwire

import (
	"fmt"
	"time"
)

// DateFromWire parses the external ledger's date representation — either a
// bare date ("2024-01-15") or a full ISO-8601 timestamp with timezone — into
// a UTC time.Time. An empty string parses to the zero time (the ledger omits
// DueDate for bills paid on receipt).
func DateFromWire(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid-wire-format: unparseable date %q", s)
}

// DateToWire renders a UTC time as a bare ISO-8601 date, matching TxnDate/DueDate.
func DateToWire(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// TimestampToWire renders a UTC time as a full RFC3339 timestamp, matching
// MetaData.LastUpdatedTime and similar fields.
func TimestampToWire(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
