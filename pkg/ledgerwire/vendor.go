package ledgerwire

import (
	"encoding/json"
	"fmt"
)

// Vendor is the normalized form of an external-ledger Vendor (a bill payee).
type Vendor struct {
	ExternalID  string
	SyncToken   int64
	DisplayName string
	CompanyName string
	Active      bool
	BalanceMinor int64
}

type vendorWire struct {
	ID          string `json:"Id"`
	SyncToken   string `json:"SyncToken"`
	DisplayName string `json:"DisplayName"`
	CompanyName string `json:"CompanyName"`
	Active      bool   `json:"Active"`
	Balance     string `json:"Balance"`
}

// VendorFromWire parses a raw Vendor payload from the external ledger.
func VendorFromWire(payload []byte) (*Vendor, error) {
	var w vendorWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("invalid-wire-format: unmarshaling vendor: %w", err)
	}

	syncToken, err := ParseSyncToken(w.SyncToken)
	if err != nil {
		return nil, err
	}
	balanceMinor, err := MinorUnitsFromWire(w.Balance)
	if err != nil {
		return nil, err
	}

	return &Vendor{
		ExternalID:   w.ID,
		SyncToken:    syncToken,
		DisplayName:  w.DisplayName,
		CompanyName:  w.CompanyName,
		Active:       w.Active,
		BalanceMinor: balanceMinor,
	}, nil
}

// VendorToWire serializes a normalized Vendor back to the external ledger's payload shape.
func VendorToWire(v *Vendor) ([]byte, error) {
	w := vendorWire{
		ID:          v.ExternalID,
		SyncToken:   FormatSyncToken(v.SyncToken),
		DisplayName: v.DisplayName,
		CompanyName: v.CompanyName,
		Active:      v.Active,
		Balance:     WireFromMinorUnits(v.BalanceMinor),
	}
	return json.Marshal(w)
}

// EntityKey returns the external ledger id, satisfying Entity.
func (v *Vendor) EntityKey() string { return v.ExternalID }

// EntityToken returns the parsed sync token, satisfying Entity.
func (v *Vendor) EntityToken() int64 { return v.SyncToken }

// Fields exposes Vendor's mutable attributes for diffing.
func (v *Vendor) Fields() Fields {
	return Fields{
		"display_name":  v.DisplayName,
		"company_name":  v.CompanyName,
		"active":        v.Active,
		"balance_minor": v.BalanceMinor,
	}
}

// VendorDiff computes the changed fields between two Vendor versions.
func VendorDiff(old, new *Vendor) map[string]FieldDiff {
	var oldFields Fields
	if old != nil {
		oldFields = old.Fields()
	}
	return Diff(oldFields, new.Fields())
}
