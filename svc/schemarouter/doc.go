// Package schemarouter turns the tenant bound to a context into the
// partition its queries must run against.
//
// Callers never pass schema names. A Router reads the binding made by
// tenant.Bind, checks the partition catalog, and hands back a Target whose
// InTx scopes one transaction to the tenant's schema:
//
//	err := router.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "INSERT INTO announcements (id, title) VALUES ($1, $2)", id, title)
//		return err
//	})
//
// A context without a live binding fails with tenant.ErrUnboundContext; a
// partition that is missing or not ready fails with
// tenant.ErrPartitionUnavailable.
package schemarouter
