package provision

import (
	"errors"
	"fmt"
)

var (
	ErrProvisioningFailed = errors.New("partition provisioning failed")
	ErrPartitionNotFound  = errors.New("partition not found")
	ErrNoBaseline         = errors.New("shared namespace has no structural revision yet")
	ErrUnknownRevision    = errors.New("unknown structural revision")
	ErrUpgradeIncomplete  = errors.New("some partitions failed to upgrade")
	ErrNotUpgradable      = errors.New("partition is not complete and cannot be upgraded")
	ErrInvalidRevisions   = errors.New("invalid revision set")
	ErrPartitionNotReady  = errors.New("partition is not ready")

	// ErrSchemaExists means the partition's schema name is already taken by
	// a namespace the catalog does not own. Provisioning never drops it.
	ErrSchemaExists = errors.New("schema already exists outside the partition catalog")
)

// ProvisioningError describes where creation of a partition failed. It
// matches ErrProvisioningFailed and the underlying cause with errors.Is.
type ProvisioningError struct {
	Slug  string
	Stage string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provision %q: %s: %v", e.Slug, e.Stage, e.Err)
}

func (e *ProvisioningError) Unwrap() []error {
	return []error{ErrProvisioningFailed, e.Err}
}
