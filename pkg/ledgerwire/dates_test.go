package ledgerwire

import "testing"

func TestDateFromWire(t *testing.T) {
	t.Run("bare date", func(t *testing.T) {
		got, err := DateFromWire("2024-01-15")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if DateToWire(got) != "2024-01-15" {
			t.Errorf("DateToWire round trip = %q, want %q", DateToWire(got), "2024-01-15")
		}
	})

	t.Run("rfc3339 timestamp", func(t *testing.T) {
		got, err := DateFromWire("2024-01-15T10:30:00-05:00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.UTC().Hour() != 15 {
			t.Errorf("expected UTC conversion, got hour %d", got.UTC().Hour())
		}
	})

	t.Run("empty string", func(t *testing.T) {
		got, err := DateFromWire("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.IsZero() {
			t.Errorf("expected zero time, got %v", got)
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		if _, err := DateFromWire("not-a-date"); err == nil {
			t.Fatal("expected invalid-wire-format error")
		}
	})
}
