package ledgerwire

import "testing"

func TestMinorUnitsFromWire(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"123.45", 12345, false},
		{"0.00", 0, false},
		{"-42.10", -4210, false},
		{"100", 10000, false},
		{"1.005", 101, false}, // rounds half-up
		{"", 0, false},
		{"abc", 0, true},
		{"12.3a", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := MinorUnitsFromWire(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MinorUnitsFromWire(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("MinorUnitsFromWire(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestAmountRoundTrip(t *testing.T) {
	// Round-trip holds for canonical two-fractional-digit strings, which is
	// the form the external ledger always renders TotalAmt/Balance in.
	canonical := []string{"123.45", "0.00", "-42.10", "1000000.01", "9.99"}
	for _, s := range canonical {
		units, err := MinorUnitsFromWire(s)
		if err != nil {
			t.Fatalf("MinorUnitsFromWire(%q): %v", s, err)
		}
		got := WireFromMinorUnits(units)
		if got != s {
			t.Errorf("round trip: WireFromMinorUnits(MinorUnitsFromWire(%q)) = %q, want %q", s, got, s)
		}
	}
}

func TestWireFromMinorUnits(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{12345, "123.45"},
		{0, "0.00"},
		{-4210, "-42.10"},
		{5, "0.05"},
	}
	for _, tt := range tests {
		if got := WireFromMinorUnits(tt.in); got != tt.want {
			t.Errorf("WireFromMinorUnits(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
