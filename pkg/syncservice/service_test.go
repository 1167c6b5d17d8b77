package syncservice

import (
	"testing"

	"github.com/google/uuid"

	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
	"github.com/data-steve/rowcol-sub001/pkg/tenant"
	"github.com/data-steve/rowcol-sub001/pkg/txnlog"
)

func testService() *Service {
	return &Service{
		tenant:  &tenant.Info{ID: uuid.New()},
		realmID: "9999",
	}
}

func TestCacheKeyDeterministic(t *testing.T) {
	s := testService()
	a := s.cacheKey("get-bills-by-due-days", "30")
	b := s.cacheKey("get-bills-by-due-days", "30")
	if a != b {
		t.Fatalf("cacheKey not deterministic: %q != %q", a, b)
	}
}

func TestCacheKeyDiffersByArgs(t *testing.T) {
	s := testService()
	a := s.cacheKey("get-bills-by-due-days", "30")
	b := s.cacheKey("get-bills-by-due-days", "60")
	if a == b {
		t.Fatalf("cacheKey collided across different args: %q", a)
	}
}

func TestCacheKeyDiffersByOp(t *testing.T) {
	s := testService()
	a := s.cacheKey("get-bills-by-due-days", "30")
	b := s.cacheKey("get-invoices-by-aging-days", "30")
	if a == b {
		t.Fatalf("cacheKey collided across different operations: %q", a)
	}
}

func TestTxnTypeForFreshSync(t *testing.T) {
	if got := txnTypeFor(false, map[string]ledgerwire.FieldDiff{"x": {}}); got != txnlog.TypeSynced {
		t.Errorf("txnTypeFor(no prior row) = %v, want synced", got)
	}
}

func TestTxnTypeForChangedFields(t *testing.T) {
	diff := map[string]ledgerwire.FieldDiff{"total_amt_minor": {Old: int64(100), New: int64(200)}}
	if got := txnTypeFor(true, diff); got != txnlog.TypeSynced {
		t.Errorf("txnTypeFor(changed fields) = %v, want synced", got)
	}
}

func TestTxnTypeForPriorRowEmptyDiff(t *testing.T) {
	if got := txnTypeFor(true, map[string]ledgerwire.FieldDiff{}); got != txnlog.TypeUpdated {
		t.Errorf("txnTypeFor(prior row, empty diff) = %v, want updated", got)
	}
}

// The literal fixtures below come from the fresh-bill-sync and
// stale/newer-update scenarios a full sync pipeline must satisfy: seed a
// bill at sync token 0, replay the same token, then replay a newer one.
func TestScenarioFreshBillSync(t *testing.T) {
	wire := []byte(`{"Id":"B1","SyncToken":"0","TotalAmt":"100.00","DueDate":"2024-02-15"}`)
	bill, err := ledgerwire.BillFromWire(wire)
	if err != nil {
		t.Fatalf("BillFromWire() error = %v", err)
	}
	if bill.ExternalID != "B1" || bill.SyncToken != 0 || bill.TotalAmtMinor != 10000 {
		t.Fatalf("bill = %+v, want ExternalID=B1 SyncToken=0 TotalAmtMinor=10000", bill)
	}

	diff := ledgerwire.BillDiff(nil, bill)
	if len(diff) == 0 {
		t.Fatal("BillDiff(nil, bill) returned no changed fields for a fresh bill")
	}
	if got := txnTypeFor(false, diff); got != txnlog.TypeSynced {
		t.Errorf("txnTypeFor(fresh bill) = %v, want synced", got)
	}
}

func TestScenarioStaleUpdateDropped(t *testing.T) {
	existing, err := ledgerwire.BillFromWire([]byte(`{"Id":"B1","SyncToken":"0","TotalAmt":"100.00"}`))
	if err != nil {
		t.Fatalf("BillFromWire(existing) error = %v", err)
	}
	replay, err := ledgerwire.BillFromWire([]byte(`{"Id":"B1","SyncToken":"0","TotalAmt":"999.00"}`))
	if err != nil {
		t.Fatalf("BillFromWire(replay) error = %v", err)
	}
	if replay.SyncToken != existing.SyncToken {
		t.Fatalf("replay sync token = %d, want %d (same token as existing)", replay.SyncToken, existing.SyncToken)
	}
	// The mirror's monotonicity guard rejects this write before any diff or
	// log entry is produced, since the sync token hasn't advanced.
}

func TestScenarioNewerUpdateApplied(t *testing.T) {
	existing, err := ledgerwire.BillFromWire([]byte(`{"Id":"B1","SyncToken":"0","TotalAmt":"100.00"}`))
	if err != nil {
		t.Fatalf("BillFromWire(existing) error = %v", err)
	}
	updated, err := ledgerwire.BillFromWire([]byte(`{"Id":"B1","SyncToken":"1","TotalAmt":"150.00"}`))
	if err != nil {
		t.Fatalf("BillFromWire(updated) error = %v", err)
	}

	diff := ledgerwire.BillDiff(existing, updated)
	amt, ok := diff["total_amt_minor"]
	if !ok {
		t.Fatal("diff missing total_amt_minor")
	}
	if amt.Old != int64(10000) || amt.New != int64(15000) {
		t.Errorf("total_amt_minor diff = %+v, want old=10000 new=15000", amt)
	}
	if got := txnTypeFor(true, diff); got != txnlog.TypeSynced {
		t.Errorf("txnTypeFor(newer update) = %v, want synced", got)
	}
}
