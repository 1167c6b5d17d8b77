package ledgerwire

import "testing"

const sampleInvoicePayload = `{
	"Id": "88",
	"SyncToken": "0",
	"CustomerRef": {"value": "9", "name": "Beacon Bakery"},
	"TxnDate": "2024-05-01",
	"DueDate": "2024-05-31",
	"TotalAmt": "1200.00",
	"Balance": "1200.00",
	"DocNumber": "1001"
}`

func TestInvoiceFromWireAndRoundTrip(t *testing.T) {
	inv, err := InvoiceFromWire([]byte(sampleInvoicePayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.TotalAmtMinor != 120000 {
		t.Errorf("TotalAmtMinor = %d, want 120000", inv.TotalAmtMinor)
	}

	out, err := InvoiceToWire(inv)
	if err != nil {
		t.Fatal(err)
	}
	inv2, err := InvoiceFromWire(out)
	if err != nil {
		t.Fatal(err)
	}
	if *inv2 != *inv {
		t.Errorf("round trip mismatch: got %+v, want %+v", inv2, inv)
	}
}

func TestInvoiceDiffMonotonicPayment(t *testing.T) {
	inv, err := InvoiceFromWire([]byte(sampleInvoicePayload))
	if err != nil {
		t.Fatal(err)
	}
	paid := *inv
	paid.BalanceMinor = 0
	paid.SyncToken = 1

	diff := InvoiceDiff(inv, &paid)
	if fd, ok := diff["balance_minor"]; !ok || fd.New != int64(0) {
		t.Errorf("expected balance_minor to go to 0, got %+v", diff["balance_minor"])
	}
}
