package ledgerwire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Balance is the normalized form of a point-in-time account balance snapshot,
// as produced by the external ledger's balance-sheet report rather than a
// single entity endpoint. Supplements the distilled spec's entity list per
// the original sync job's balance target.
type Balance struct {
	AccountRef   Ref
	AmountMinor  int64
	AsOfDate     time.Time
}

type balanceWire struct {
	AccountRef Ref    `json:"AccountRef"`
	Amount     string `json:"Amount"`
	AsOfDate   string `json:"AsOfDate"`
}

// BalanceFromWire parses a raw Balance payload from the external ledger.
func BalanceFromWire(payload []byte) (*Balance, error) {
	var w balanceWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("invalid-wire-format: unmarshaling balance: %w", err)
	}

	amountMinor, err := MinorUnitsFromWire(w.Amount)
	if err != nil {
		return nil, err
	}
	asOf, err := DateFromWire(w.AsOfDate)
	if err != nil {
		return nil, err
	}

	return &Balance{
		AccountRef:  w.AccountRef,
		AmountMinor: amountMinor,
		AsOfDate:    asOf,
	}, nil
}

// BalanceToWire serializes a normalized Balance back to the external ledger's payload shape.
func BalanceToWire(b *Balance) ([]byte, error) {
	w := balanceWire{
		AccountRef: b.AccountRef,
		Amount:     WireFromMinorUnits(b.AmountMinor),
		AsOfDate:   DateToWire(b.AsOfDate),
	}
	return json.Marshal(w)
}

// Fields exposes Balance's mutable attributes for diffing.
func (b *Balance) Fields() Fields {
	return Fields{
		"account_ref":  b.AccountRef.ID,
		"amount_minor": b.AmountMinor,
		"as_of_date":   b.AsOfDate,
	}
}

// BalanceDiff computes the changed fields between two Balance versions.
func BalanceDiff(old, new *Balance) map[string]FieldDiff {
	var oldFields Fields
	if old != nil {
		oldFields = old.Fields()
	}
	return Diff(oldFields, new.Fields())
}
