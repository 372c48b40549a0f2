// Package pg wraps the pgx/v5 driver with the pieces the tenant core needs
// from PostgreSQL: a retrying pool constructor, goose-driven migrations for
// the shared namespace, advisory locks and schema helpers.
//
// # Architecture
//
//   - Config is populated from environment variables via caarlos0/env. It
//     controls pool limits, the shared schema name and the goose version table.
//
//   - Connect opens a *pgxpool.Pool, pins every session's search_path to the
//     shared schema and retries until the database answers a ping.
//
//   - Migrate runs goose against an embedded filesystem and reports the
//     resulting shared structural revision.
//
//   - AdvisoryLock serializes work on a key across every process talking to
//     the same database. LockKey hashes a namespaced name into that key space.
//
//   - QuoteIdent, SetLocalSearchPath, CreateSchema and DropSchema are the only
//     places where a runtime identifier reaches DDL text. Callers must validate
//     the identifier first; quoting is the second line of defence.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	rev, err := pg.Migrate(ctx, pool, cfg, migrations.Shared, "shared", 0, log)
//
// # Error Handling
//
// IsNotFoundError, IsDuplicateKeyError, IsDuplicateSchemaError and
// IsUndefinedTableError classify errors returned by pgx.
package pg
