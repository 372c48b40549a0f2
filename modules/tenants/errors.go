package tenants

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/tenantkit/core"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/onboarding"
	"github.com/dmitrymomot/tenantkit/svc/provision"
	"github.com/dmitrymomot/tenantkit/svc/registry"
)

var (
	ErrInvalidTransition = core.NewHTTPError(http.StatusConflict, "invalid_transition")
	ErrProvisioning      = core.NewHTTPError(http.StatusBadGateway, "provisioning_failed")
	ErrUnknownRevision   = core.NewHTTPError(http.StatusUnprocessableEntity, "unknown_revision")
	ErrPartitionNotReady = core.NewHTTPError(http.StatusConflict, "partition_not_ready")
)

// httpError maps service errors onto API errors; the original error stays in
// the chain for logging.
func httpError(err error) error {
	var mapped core.HTTPError
	switch {
	case errors.Is(err, registry.ErrNotProvisioned):
		mapped = ErrPartitionNotReady
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, provision.ErrPartitionNotFound):
		mapped = core.ErrNotFound
	case errors.Is(err, registry.ErrSlugTaken), errors.Is(err, registry.ErrStatusConflict),
		errors.Is(err, onboarding.ErrNotActivatable):
		mapped = core.ErrConflict
	case errors.Is(err, registry.ErrInvalidTransition):
		mapped = ErrInvalidTransition
	case errors.Is(err, registry.ErrInvalidName), errors.Is(err, registry.ErrInvalidSlug),
		errors.Is(err, registry.ErrInvalidStatus), errors.Is(err, registry.ErrInvalidInput),
		errors.Is(err, tenant.ErrInvalidSlug), errors.Is(err, tenant.ErrReservedSlug):
		mapped = core.ErrUnprocessableEntity
	case errors.Is(err, provision.ErrUnknownRevision):
		mapped = ErrUnknownRevision
	case errors.Is(err, provision.ErrProvisioningFailed):
		mapped = ErrProvisioning
	default:
		return err
	}
	return errors.Join(mapped, err)
}
