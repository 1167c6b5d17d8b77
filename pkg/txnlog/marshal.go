package txnlog

import (
	"encoding/json"
	"fmt"

	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
)

// MarshalDiff renders a field diff map (as produced by pkg/ledgerwire's
// per-entity Diff functions) into the JSON stored alongside each entry.
func MarshalDiff(diff map[string]ledgerwire.FieldDiff) (json.RawMessage, error) {
	data, err := json.Marshal(diff)
	if err != nil {
		return nil, fmt.Errorf("marshaling field diff: %w", err)
	}
	return data, nil
}
