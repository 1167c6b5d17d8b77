package ledgerwire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Invoice is the normalized form of an external-ledger Invoice (accounts receivable).
type Invoice struct {
	ExternalID    string
	SyncToken     int64
	CustomerRef   Ref
	TxnDate       time.Time
	DueDate       time.Time
	TotalAmtMinor int64
	BalanceMinor  int64
	DocNumber     string
	PrivateNote   string
}

type invoiceWire struct {
	ID          string `json:"Id"`
	SyncToken   string `json:"SyncToken"`
	CustomerRef Ref    `json:"CustomerRef"`
	TxnDate     string `json:"TxnDate"`
	DueDate     string `json:"DueDate"`
	TotalAmt    string `json:"TotalAmt"`
	Balance     string `json:"Balance"`
	DocNumber   string `json:"DocNumber"`
	PrivateNote string `json:"PrivateNote"`
}

// InvoiceFromWire parses a raw Invoice payload from the external ledger.
func InvoiceFromWire(payload []byte) (*Invoice, error) {
	var w invoiceWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("invalid-wire-format: unmarshaling invoice: %w", err)
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

	return &Invoice{
		ExternalID:    w.ID,
		SyncToken:     syncToken,
		CustomerRef:   w.CustomerRef,
		TxnDate:       txnDate,
		DueDate:       dueDate,
		TotalAmtMinor: totalMinor,
		BalanceMinor:  balanceMinor,
		DocNumber:     w.DocNumber,
		PrivateNote:   w.PrivateNote,
	}, nil
}

// InvoiceToWire serializes a normalized Invoice back to the external ledger's payload shape.
func InvoiceToWire(inv *Invoice) ([]byte, error) {
	w := invoiceWire{
		ID:          inv.ExternalID,
		SyncToken:   FormatSyncToken(inv.SyncToken),
		CustomerRef: inv.CustomerRef,
		TxnDate:     DateToWire(inv.TxnDate),
		DueDate:     DateToWire(inv.DueDate),
		TotalAmt:    WireFromMinorUnits(inv.TotalAmtMinor),
		Balance:     WireFromMinorUnits(inv.BalanceMinor),
		DocNumber:   inv.DocNumber,
		PrivateNote: inv.PrivateNote,
	}
	return json.Marshal(w)
}

// EntityKey returns the external ledger id, satisfying Entity.
func (inv *Invoice) EntityKey() string { return inv.ExternalID }

// EntityToken returns the parsed sync token, satisfying Entity.
func (inv *Invoice) EntityToken() int64 { return inv.SyncToken }

// Fields exposes Invoice's mutable attributes for diffing.
func (inv *Invoice) Fields() Fields {
	return Fields{
		"customer_ref":    inv.CustomerRef.ID,
		"txn_date":        inv.TxnDate,
		"due_date":        inv.DueDate,
		"total_amt_minor": inv.TotalAmtMinor,
		"balance_minor":   inv.BalanceMinor,
		"doc_number":      inv.DocNumber,
		"private_note":    inv.PrivateNote,
	}
}

// InvoiceDiff computes the changed fields between two Invoice versions.
func InvoiceDiff(old, new *Invoice) map[string]FieldDiff {
	var oldFields Fields
	if old != nil {
		oldFields = old.Fields()
	}
	return Diff(oldFields, new.Fields())
}
