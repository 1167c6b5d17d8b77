package ledgerwire

import (
	"encoding/json"
	"fmt"
)

// Account is the normalized form of an external-ledger chart-of-accounts entry.
type Account struct {
	ExternalID        string
	SyncToken         int64
	Name              string
	AccountType        string
	AccountSubType     string
	CurrentBalanceMinor int64
	Active             bool
}

type accountWire struct {
	ID                string `json:"Id"`
	SyncToken         string `json:"SyncToken"`
	Name              string `json:"Name"`
	AccountType       string `json:"AccountType"`
	AccountSubType    string `json:"AccountSubType"`
	CurrentBalance    string `json:"CurrentBalance"`
	Active            bool   `json:"Active"`
}

// AccountFromWire parses a raw Account payload from the external ledger.
func AccountFromWire(payload []byte) (*Account, error) {
	var w accountWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("invalid-wire-format: unmarshaling account: %w", err)
	}

	syncToken, err := ParseSyncToken(w.SyncToken)
	if err != nil {
		return nil, err
	}
	balanceMinor, err := MinorUnitsFromWire(w.CurrentBalance)
	if err != nil {
		return nil, err
	}

	return &Account{
		ExternalID:          w.ID,
		SyncToken:           syncToken,
		Name:                w.Name,
		AccountType:         w.AccountType,
		AccountSubType:      w.AccountSubType,
		CurrentBalanceMinor: balanceMinor,
		Active:              w.Active,
	}, nil
}

// AccountToWire serializes a normalized Account back to the external ledger's payload shape.
func AccountToWire(a *Account) ([]byte, error) {
	w := accountWire{
		ID:             a.ExternalID,
		SyncToken:      FormatSyncToken(a.SyncToken),
		Name:           a.Name,
		AccountType:    a.AccountType,
		AccountSubType: a.AccountSubType,
		CurrentBalance: WireFromMinorUnits(a.CurrentBalanceMinor),
		Active:         a.Active,
	}
	return json.Marshal(w)
}

// EntityKey returns the external ledger id, satisfying Entity.
func (a *Account) EntityKey() string { return a.ExternalID }

// EntityToken returns the parsed sync token, satisfying Entity.
func (a *Account) EntityToken() int64 { return a.SyncToken }

// Fields exposes Account's mutable attributes for diffing.
func (a *Account) Fields() Fields {
	return Fields{
		"name":                  a.Name,
		"account_type":          a.AccountType,
		"account_sub_type":      a.AccountSubType,
		"current_balance_minor": a.CurrentBalanceMinor,
		"active":                a.Active,
	}
}

// AccountDiff computes the changed fields between two Account versions.
func AccountDiff(old, new *Account) map[string]FieldDiff {
	var oldFields Fields
	if old != nil {
		oldFields = old.Fields()
	}
	return Diff(oldFields, new.Fields())
}
