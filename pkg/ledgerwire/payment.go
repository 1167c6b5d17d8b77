package ledgerwire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payment is the normalized form of an external-ledger Payment (a receipt
// against one or more invoices).
type Payment struct {
	ExternalID      string
	SyncToken       int64
	CustomerRef     Ref
	TxnDate         time.Time
	TotalAmtMinor   int64
	UnappliedMinor  int64
	PaymentRefNum   string
	Voided          bool
}

type paymentWire struct {
	ID            string `json:"Id"`
	SyncToken     string `json:"SyncToken"`
	CustomerRef   Ref    `json:"CustomerRef"`
	TxnDate       string `json:"TxnDate"`
	TotalAmt      string `json:"TotalAmt"`
	UnappliedAmt  string `json:"UnappliedAmt"`
	PaymentRefNum string `json:"PaymentRefNum"`
	Voided        bool   `json:"Voided,omitempty"`
}

// PaymentFromWire parses a raw Payment payload from the external ledger.
func PaymentFromWire(payload []byte) (*Payment, error) {
	var w paymentWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("invalid-wire-format: unmarshaling payment: %w", err)
	}

	syncToken, err := ParseSyncToken(w.SyncToken)
	if err != nil {
		return nil, err
	}
	txnDate, err := DateFromWire(w.TxnDate)
	if err != nil {
		return nil, err
	}
	totalMinor, err := MinorUnitsFromWire(w.TotalAmt)
	if err != nil {
		return nil, err
	}
	unappliedMinor, err := MinorUnitsFromWire(w.UnappliedAmt)
	if err != nil {
		return nil, err
	}

	return &Payment{
		ExternalID:     w.ID,
		SyncToken:      syncToken,
		CustomerRef:    w.CustomerRef,
		TxnDate:        txnDate,
		TotalAmtMinor:  totalMinor,
		UnappliedMinor: unappliedMinor,
		PaymentRefNum:  w.PaymentRefNum,
		Voided:         w.Voided,
	}, nil
}

// PaymentToWire serializes a normalized Payment back to the external ledger's payload shape.
func PaymentToWire(p *Payment) ([]byte, error) {
	w := paymentWire{
		ID:            p.ExternalID,
		SyncToken:     FormatSyncToken(p.SyncToken),
		CustomerRef:   p.CustomerRef,
		TxnDate:       DateToWire(p.TxnDate),
		TotalAmt:      WireFromMinorUnits(p.TotalAmtMinor),
		UnappliedAmt:  WireFromMinorUnits(p.UnappliedMinor),
		PaymentRefNum: p.PaymentRefNum,
		Voided:        p.Voided,
	}
	return json.Marshal(w)
}

// EntityKey returns the external ledger id, satisfying Entity.
func (p *Payment) EntityKey() string { return p.ExternalID }

// EntityToken returns the parsed sync token, satisfying Entity.
func (p *Payment) EntityToken() int64 { return p.SyncToken }

// Fields exposes Payment's mutable attributes for diffing.
func (p *Payment) Fields() Fields {
	return Fields{
		"customer_ref":    p.CustomerRef.ID,
		"txn_date":        p.TxnDate,
		"total_amt_minor": p.TotalAmtMinor,
		"unapplied_minor": p.UnappliedMinor,
		"payment_ref_num": p.PaymentRefNum,
		"voided":          p.Voided,
	}
}

// PaymentDiff computes the changed fields between two Payment versions.
func PaymentDiff(old, new *Payment) map[string]FieldDiff {
	var oldFields Fields
	if old != nil {
		oldFields = old.Fields()
	}
	return Diff(oldFields, new.Fields())
}
