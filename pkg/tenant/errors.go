package tenant

import "errors"

var (
	// ErrMissingTenantHeader is returned when a request carries no tenant identifier.
	ErrMissingTenantHeader = errors.New("missing tenant header")

	// ErrUnknownTenant is returned when no registry row matches the identifier.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrInactiveTenant is returned when the tenant exists but its status forbids traffic.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrInvalidIdentifier is returned when the identifier format is invalid.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrUnboundContext means tenant-scoped code ran without a bound tenant.
	// It is a programming defect, never a client error.
	ErrUnboundContext = errors.New("tenant: no tenant bound to context")

	// ErrRebind is returned when a bound context is re-bound to a different tenant.
	ErrRebind = errors.New("tenant: context already bound to another tenant")

	// ErrInvalidBinding is returned for a nil tenant or body.
	ErrInvalidBinding = errors.New("tenant: invalid binding")

	// ErrPartitionUnavailable is returned when the bound tenant's partition is
	// missing, quarantined or degraded.
	ErrPartitionUnavailable = errors.New("tenant partition unavailable")

	ErrInvalidSlug  = errors.New("invalid tenant slug")
	ErrReservedSlug = errors.New("reserved tenant slug")
)
