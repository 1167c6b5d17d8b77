package ledgerwire

import (
	"encoding/json"
	"fmt"
)

// Customer is the normalized form of an external-ledger Customer (an invoice payer).
type Customer struct {
	ExternalID   string
	SyncToken    int64
	DisplayName  string
	CompanyName  string
	Active       bool
	BalanceMinor int64
}

type customerWire struct {
	ID          string `json:"Id"`
	SyncToken   string `json:"SyncToken"`
	DisplayName string `json:"DisplayName"`
	CompanyName string `json:"CompanyName"`
	Active      bool   `json:"Active"`
	Balance     string `json:"Balance"`
}

// CustomerFromWire parses a raw Customer payload from the external ledger.
func CustomerFromWire(payload []byte) (*Customer, error) {
	var w customerWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("invalid-wire-format: unmarshaling customer: %w", err)
	}

	syncToken, err := ParseSyncToken(w.SyncToken)
	if err != nil {
		return nil, err
	}
	balanceMinor, err := MinorUnitsFromWire(w.Balance)
	if err != nil {
		return nil, err
	}

	return &Customer{
		ExternalID:   w.ID,
		SyncToken:    syncToken,
		DisplayName:  w.DisplayName,
		CompanyName:  w.CompanyName,
		Active:       w.Active,
		BalanceMinor: balanceMinor,
	}, nil
}

// CustomerToWire serializes a normalized Customer back to the external ledger's payload shape.
func CustomerToWire(c *Customer) ([]byte, error) {
	w := customerWire{
		ID:          c.ExternalID,
		SyncToken:   FormatSyncToken(c.SyncToken),
		DisplayName: c.DisplayName,
		CompanyName: c.CompanyName,
		Active:      c.Active,
		Balance:     WireFromMinorUnits(c.BalanceMinor),
	}
	return json.Marshal(w)
}

// EntityKey returns the external ledger id, satisfying Entity.
func (c *Customer) EntityKey() string { return c.ExternalID }

// EntityToken returns the parsed sync token, satisfying Entity.
func (c *Customer) EntityToken() int64 { return c.SyncToken }

// Fields exposes Customer's mutable attributes for diffing.
func (c *Customer) Fields() Fields {
	return Fields{
		"display_name":  c.DisplayName,
		"company_name":  c.CompanyName,
		"active":        c.Active,
		"balance_minor": c.BalanceMinor,
	}
}

// CustomerDiff computes the changed fields between two Customer versions.
func CustomerDiff(old, new *Customer) map[string]FieldDiff {
	var oldFields Fields
	if old != nil {
		oldFields = old.Fields()
	}
	return Diff(oldFields, new.Fields())
}
