package registry

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var (
	ErrNotFound       = errors.New("tenant not found")
	ErrSlugTaken      = errors.New("tenant slug already taken")
	ErrInvalidName    = errors.New("tenant name is required")
	ErrInvalidSlug    = errors.New("invalid tenant slug")
	ErrInvalidStatus  = errors.New("invalid tenant status")
	ErrStatusConflict = errors.New("tenant status changed concurrently")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotProvisioned = errors.New("tenant partition is not ready")
)

// TransitionError is returned by Update when the requested status change is
// not part of the tenant lifecycle.
type TransitionError struct {
	From tenant.Status
	To   tenant.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid tenant status transition from %q to %q", e.From, e.To)
}

// ErrInvalidTransition matches any *TransitionError with errors.Is.
var ErrInvalidTransition = errors.New("invalid tenant status transition")

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IsTransitionError reports whether err is or wraps a *TransitionError.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}
