package provision

import "context"

// Store is the persistence the engine drives: the partition catalog, the
// partitions themselves and the shared namespace revision.
type Store interface {
	// Lock serialises work on one slug across processes. The returned func
	// releases the lock and is safe to call more than once.
	Lock(ctx context.Context, slug string) (unlock func(), err error)

	// Partition returns ErrPartitionNotFound when the slug has no catalog row.
	Partition(ctx context.Context, slug string) (Partition, error)
	ListPartitions(ctx context.Context) ([]Partition, error)

	// BeginProvisioning upserts the catalog row in state provisioning at
	// revision 0 and counts the attempt.
	BeginProvisioning(ctx context.Context, slug, schema string) error

	// CreatePartition runs in one transaction: drop any leftover schema,
	// create it, apply revs in order, stamp the last version and mark ready.
	CreatePartition(ctx context.Context, slug, schema string, revs []Revision) error

	// ApplyRevision applies rev and stamps its version in one transaction.
	// It is a no-op when the partition is already at or past rev.Version.
	ApplyRevision(ctx context.Context, slug, schema string, rev Revision) error

	MarkState(ctx context.Context, slug string, state State, lastErr string) error

	// DropPartition removes the schema with everything in it and its catalog
	// row. Only called for partitions that were built (ready or degraded).
	DropPartition(ctx context.Context, slug, schema string) error

	// ForgetPartition removes only the catalog row. Used for partitions whose
	// creation never committed, so the schema name may belong to someone else.
	ForgetPartition(ctx context.Context, slug string) error

	// SharedRevision is the current structural revision of the shared namespace.
	SharedRevision(ctx context.Context) (int64, error)

	// MigrateShared brings the shared namespace to target (latest when
	// target <= 0) and returns the resulting revision.
	MigrateShared(ctx context.Context, target int64) (int64, error)
}
