package mirror

import "testing"

func TestTableForKnownKinds(t *testing.T) {
	kinds := []Kind{KindBill, KindInvoice, KindVendor, KindCustomer, KindPayment, KindAccount, KindCompanyInfo, KindBalance}
	for _, k := range kinds {
		if _, err := tableFor(k); err != nil {
			t.Errorf("tableFor(%s) unexpected error: %v", k, err)
		}
	}
}

func TestTableForUnknownKind(t *testing.T) {
	if _, err := tableFor(Kind("nonsense")); err == nil {
		t.Error("expected error for unknown entity kind")
	}
}
