package ledgerwire

import (
	"fmt"
	"strconv"
	"strings"
)

// MinorUnitsFromWire parses a decimal amount string (e.g. "123.45") into
// integer minor units (cents). Amounts with more than two fractional digits
// are rounded half-up to the nearest cent rather than truncated.
func MinorUnitsFromWire(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, nil
	}

	neg := false
	if strings.HasPrefix(raw, "-") {
		neg = true
		raw = raw[1:]
	}

	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) {
		return 0, fmt.Errorf("invalid-wire-format: amount %q has a non-numeric integer part", s)
	}
	wholeUnits, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid-wire-format: parsing amount %q: %w", s, err)
	}

	var fracUnits int64
	if hasFrac {
		if !isDigits(frac) {
			return 0, fmt.Errorf("invalid-wire-format: amount %q has a non-numeric fractional part", s)
		}
		fracUnits, err = roundFraction(frac)
		if err != nil {
			return 0, fmt.Errorf("invalid-wire-format: amount %q: %w", s, err)
		}
	}

	total := wholeUnits*100 + fracUnits
	if neg {
		total = -total
	}
	return total, nil
}

// WireFromMinorUnits renders integer minor units back to a canonical decimal
// string with exactly two fractional digits, matching the external ledger's
// own rendering of amounts.
func WireFromMinorUnits(units int64) string {
	neg := units < 0
	if neg {
		units = -units
	}
	s := fmt.Sprintf("%d.%02d", units/100, units%100)
	if neg {
		s = "-" + s
	}
	return s
}

func roundFraction(frac string) (int64, error) {
	switch len(frac) {
	case 0:
		return 0, nil
	case 1:
		v, err := strconv.ParseInt(frac, 10, 64)
		return v * 10, err
	case 2:
		return strconv.ParseInt(frac, 10, 64)
	default:
		head, err := strconv.ParseInt(frac[:2], 10, 64)
		if err != nil {
			return 0, err
		}
		if frac[2] >= '5' {
			head++
		}
		return head, nil
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
