package provision

import (
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

// NewPostgresStoreOn builds a PostgresStore over db alone. Lock and the
// shared namespace methods need a pool and are unavailable.
func NewPostgresStoreOn(db DB, cfg pg.Config) *PostgresStore {
	return &PostgresStore{
		db:      db,
		cfg:     cfg,
		catalog: pg.QuoteIdent(cfg.SharedSchema) + ".tenant_partitions",
		log:     logger.Discard(),
	}
}
