package ledgerwire

import "testing"

func TestVendorFromWireAndRoundTrip(t *testing.T) {
	payload := []byte(`{"Id":"42","SyncToken":"1","DisplayName":"Acme Supplies","CompanyName":"Acme Supplies LLC","Active":true,"Balance":"0.00"}`)

	v, err := VendorFromWire(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.DisplayName != "Acme Supplies" {
		t.Errorf("DisplayName = %q", v.DisplayName)
	}

	out, err := VendorToWire(v)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := VendorFromWire(out)
	if err != nil {
		t.Fatal(err)
	}
	if *v2 != *v {
		t.Errorf("round trip mismatch: got %+v, want %+v", v2, v)
	}
}

func TestVendorDiffDeactivate(t *testing.T) {
	v, err := VendorFromWire([]byte(`{"Id":"1","SyncToken":"1","DisplayName":"X","Active":true,"Balance":"0.00"}`))
	if err != nil {
		t.Fatal(err)
	}
	deactivated := *v
	deactivated.Active = false

	diff := VendorDiff(v, &deactivated)
	if fd, ok := diff["active"]; !ok || fd.New != false {
		t.Errorf("expected active to flip to false, got %+v", diff["active"])
	}
	if len(diff) != 1 {
		t.Errorf("expected exactly 1 changed field, got %d", len(diff))
	}
}
