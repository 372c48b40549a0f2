package schemarouter

import "errors"

// ErrTargetMismatch is returned when a Target is used with a context bound to
// another tenant, or to none.
var ErrTargetMismatch = errors.New("schemarouter: target does not match the bound tenant")
