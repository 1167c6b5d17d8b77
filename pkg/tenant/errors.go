package tenant

import "errors"

// ErrNotFound is returned when a tenant lookup or mutation targets an unknown id.
var ErrNotFound = errors.New("tenant not found")
