// Package provision creates, upgrades and removes tenant partitions.
//
// Each tenant owns one PostgreSQL schema named after its slug. The Engine
// builds it atomically at the current structural revision of the shared
// namespace, brings existing partitions forward revision by revision, and
// records every partition in a catalog table whose state decides whether
// the partition may receive traffic:
//
//	provisioning -> ready         creation committed
//	provisioning -> quarantined   creation failed, rebuilt on next Provision
//	ready        -> degraded      an upgrade step failed, repaired by the next upgrade
//
// Work on one slug is serialised with a PostgreSQL advisory lock, so
// concurrent callers in different processes never build the same partition
// twice.
package provision
