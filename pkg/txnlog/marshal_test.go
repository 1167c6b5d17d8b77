package txnlog

import (
	"encoding/json"
	"testing"

	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
)

func TestMarshalDiff(t *testing.T) {
	diff := map[string]ledgerwire.FieldDiff{
		"TotalAmtMinor": {Old: int64(1000), New: int64(1500)},
	}
	data, err := MarshalDiff(diff)
	if err != nil {
		t.Fatalf("MarshalDiff() error = %v", err)
	}

	var roundTripped map[string]ledgerwire.FieldDiff
	if err := json.Unmarshal(data, &roundTripped); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	got := roundTripped["TotalAmtMinor"]
	if got.New != float64(1500) {
		// JSON numbers decode to float64 without a concrete target type.
		t.Errorf("New = %v, want 1500", got.New)
	}
}

func TestSourceConstants(t *testing.T) {
	sources := []Source{SourceExternalLedger, SourcePaymentRail, SourceBankRail, SourceUser, SourceSystem}
	seen := make(map[Source]bool)
	for _, s := range sources {
		if seen[s] {
			t.Errorf("duplicate source constant value %q", s)
		}
		seen[s] = true
	}
}
