package credential

import "errors"

// ErrNotConnected is returned when a tenant has no stored credential — it
// has never completed the OAuth2 authorization-code flow.
var ErrNotConnected = errors.New("credential: tenant has not connected the external ledger")
