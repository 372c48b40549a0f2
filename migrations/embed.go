// Package migrations embeds the structural revisions of the deployment.
//
// A structural revision N has a shared part, shared/N_*.sql, applied once to
// the shared namespace with goose, and optionally a tenant part,
// tenant/N_*.sql, applied to every tenant partition. The goose version of the
// shared namespace is the revision partitions are brought up to.
package migrations

import "embed"

const (
	SharedDir = "shared"
	TenantDir = "tenant"
)

//go:embed shared/*.sql
var Shared embed.FS

//go:embed tenant/*.sql
var Tenant embed.FS
