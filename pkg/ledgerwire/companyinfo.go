package ledgerwire

import (
	"encoding/json"
	"fmt"
	"time"
)

// CompanyInfo is the normalized form of the external ledger's single
// per-realm company record. Supplements the distilled spec's entity list
// per the original sync job's company-info target.
type CompanyInfo struct {
	ExternalID           string
	SyncToken            int64
	CompanyName          string
	LegalName            string
	Country              string
	FiscalYearStartMonth string
	LastUpdatedTime      time.Time
}

type companyInfoWire struct {
	ID                   string `json:"Id"`
	SyncToken            string `json:"SyncToken"`
	CompanyName          string `json:"CompanyName"`
	LegalName            string `json:"LegalName"`
	Country              string `json:"Country"`
	FiscalYearStartMonth string `json:"FiscalYearStartMonth"`
	MetaData             struct {
		LastUpdatedTime string `json:"LastUpdatedTime"`
	} `json:"MetaData"`
}

// CompanyInfoFromWire parses a raw CompanyInfo payload from the external ledger.
func CompanyInfoFromWire(payload []byte) (*CompanyInfo, error) {
	var w companyInfoWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("invalid-wire-format: unmarshaling company info: %w", err)
	}

	syncToken, err := ParseSyncToken(w.SyncToken)
	if err != nil {
		return nil, err
	}
	lastUpdated, err := DateFromWire(w.MetaData.LastUpdatedTime)
	if err != nil {
		return nil, err
	}

	return &CompanyInfo{
		ExternalID:           w.ID,
		SyncToken:            syncToken,
		CompanyName:          w.CompanyName,
		LegalName:            w.LegalName,
		Country:              w.Country,
		FiscalYearStartMonth: w.FiscalYearStartMonth,
		LastUpdatedTime:      lastUpdated,
	}, nil
}

// CompanyInfoToWire serializes a normalized CompanyInfo back to the external
// ledger's payload shape.
func CompanyInfoToWire(c *CompanyInfo) ([]byte, error) {
	w := companyInfoWire{
		ID:                   c.ExternalID,
		SyncToken:            FormatSyncToken(c.SyncToken),
		CompanyName:          c.CompanyName,
		LegalName:            c.LegalName,
		Country:              c.Country,
		FiscalYearStartMonth: c.FiscalYearStartMonth,
	}
	w.MetaData.LastUpdatedTime = TimestampToWire(c.LastUpdatedTime)
	return json.Marshal(w)
}

// EntityKey returns the external ledger id (the realm id), satisfying Entity.
func (c *CompanyInfo) EntityKey() string { return c.ExternalID }

// EntityToken returns the parsed sync token, satisfying Entity.
func (c *CompanyInfo) EntityToken() int64 { return c.SyncToken }

// Fields exposes CompanyInfo's mutable attributes for diffing.
func (c *CompanyInfo) Fields() Fields {
	return Fields{
		"company_name":             c.CompanyName,
		"legal_name":               c.LegalName,
		"country":                  c.Country,
		"fiscal_year_start_month":  c.FiscalYearStartMonth,
	}
}

// CompanyInfoDiff computes the changed fields between two CompanyInfo versions.
func CompanyInfoDiff(old, new *CompanyInfo) map[string]FieldDiff {
	var oldFields Fields
	if old != nil {
		oldFields = old.Fields()
	}
	return Diff(oldFields, new.Fields())
}
