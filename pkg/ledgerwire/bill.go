package ledgerwire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bill is the normalized form of an external-ledger Bill (accounts payable).
type Bill struct {
	ExternalID    string
	SyncToken     int64
	VendorRef     Ref
	TxnDate       time.Time
	DueDate       time.Time
	TotalAmtMinor int64
	BalanceMinor  int64
	DocNumber     string
	PrivateNote   string
}

type billWire struct {
	ID          string `json:"Id"`
	SyncToken   string `json:"SyncToken"`
	VendorRef   Ref    `json:"VendorRef"`
	TxnDate     string `json:"TxnDate"`
	DueDate     string `json:"DueDate"`
	TotalAmt    string `json:"TotalAmt"`
	Balance     string `json:"Balance"`
	DocNumber   string `json:"DocNumber"`
	PrivateNote string `json:"PrivateNote"`
}

// BillFromWire parses a raw Bill payload from the external ledger.
func BillFromWire(payload []byte) (*Bill, error) {
	var w billWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("invalid-wire-format: unmarshaling bill: %w", err)
	}

	syncToken, err := ParseSyncToken(w.SyncToken)
	if err != nil {
		return nil, err
	}
	txnDate, err := DateFromWire(w.TxnDate)
	if err != nil {
		return nil, err
	}
	dueDate, err := DateFromWire(w.DueDate)
	if err != nil {
		return nil, err
	}
	totalMinor, err := MinorUnitsFromWire(w.TotalAmt)
	if err != nil {
		return nil, err
	}
	balanceMinor, err := MinorUnitsFromWire(w.Balance)
	if err != nil {
		return nil, err
	}

	return &Bill{
		ExternalID:    w.ID,
		SyncToken:     syncToken,
		VendorRef:     w.VendorRef,
		TxnDate:       txnDate,
		DueDate:       dueDate,
		TotalAmtMinor: totalMinor,
		BalanceMinor:  balanceMinor,
		DocNumber:     w.DocNumber,
		PrivateNote:   w.PrivateNote,
	}, nil
}

// BillToWire serializes a normalized Bill back to the external ledger's payload shape.
func BillToWire(b *Bill) ([]byte, error) {
	w := billWire{
		ID:          b.ExternalID,
		SyncToken:   FormatSyncToken(b.SyncToken),
		VendorRef:   b.VendorRef,
		TxnDate:     DateToWire(b.TxnDate),
		DueDate:     DateToWire(b.DueDate),
		TotalAmt:    WireFromMinorUnits(b.TotalAmtMinor),
		Balance:     WireFromMinorUnits(b.BalanceMinor),
		DocNumber:   b.DocNumber,
		PrivateNote: b.PrivateNote,
	}
	return json.Marshal(w)
}

// EntityKey returns the external ledger id, satisfying Entity.
func (b *Bill) EntityKey() string { return b.ExternalID }

// EntityToken returns the parsed sync token, satisfying Entity.
func (b *Bill) EntityToken() int64 { return b.SyncToken }

// Fields exposes Bill's mutable attributes for diffing.
func (b *Bill) Fields() Fields {
	return Fields{
		"vendor_ref":      b.VendorRef.ID,
		"txn_date":        b.TxnDate,
		"due_date":        b.DueDate,
		"total_amt_minor": b.TotalAmtMinor,
		"balance_minor":   b.BalanceMinor,
		"doc_number":      b.DocNumber,
		"private_note":    b.PrivateNote,
	}
}

// BillDiff computes the changed fields between two Bill versions.
// old may be nil for an insert, in which case every field is reported changed.
func BillDiff(old, new *Bill) map[string]FieldDiff {
	var oldFields Fields
	if old != nil {
		oldFields = old.Fields()
	}
	return Diff(oldFields, new.Fields())
}
