package provision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

const (
	lockNamespace    = "tenant-partition"
	partitionColumns = `slug, schema_name, revision, state, last_error, attempts, updated_at`
)

// DB is the query surface of *pgxpool.Pool the catalog and partition DDL run on.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps one schema per partition and the catalog in the
// shared namespace.
type PostgresStore struct {
	pool      *pgxpool.Pool
	db        DB
	cfg       pg.Config
	sharedFS  fs.FS
	sharedDir string
	catalog   string
	log       *slog.Logger
}

// NewPostgresStore returns a store over pool. sharedFS and sharedDir hold the
// goose migrations of the shared namespace.
func NewPostgresStore(pool *pgxpool.Pool, cfg pg.Config, sharedFS fs.FS, sharedDir string, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresStore{
		pool:      pool,
		db:        pool,
		cfg:       cfg,
		sharedFS:  sharedFS,
		sharedDir: sharedDir,
		catalog:   pg.QuoteIdent(cfg.SharedSchema) + ".tenant_partitions",
		log:       log,
	}
}

func (s *PostgresStore) Lock(ctx context.Context, slug string) (func(), error) {
	return pg.AdvisoryLock(ctx, s.pool, pg.LockKey(lockNamespace, slug))
}

func (s *PostgresStore) Partition(ctx context.Context, slug string) (Partition, error) {
	row := s.db.QueryRow(ctx, `SELECT `+partitionColumns+` FROM `+s.catalog+` WHERE slug = $1`, slug)
	p, err := scanPartition(row)
	if pg.IsNotFoundError(err) {
		return Partition{}, ErrPartitionNotFound
	}
	if err != nil {
		return Partition{}, fmt.Errorf("get partition: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPartitions(ctx context.Context) ([]Partition, error) {
	rows, err := s.db.Query(ctx, `SELECT `+partitionColumns+` FROM `+s.catalog+` ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	defer rows.Close()

	var out []Partition
	for rows.Next() {
		p, err := scanPartition(rows)
		if err != nil {
			return nil, fmt.Errorf("list partitions: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) BeginProvisioning(ctx context.Context, slug, schema string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO `+s.catalog+` AS p (slug, schema_name, revision, state, last_error, attempts, updated_at)
		VALUES ($1, $2, 0, $3, '', 1, now())
		ON CONFLICT (slug) DO UPDATE SET
			schema_name = EXCLUDED.schema_name,
			revision    = 0,
			state       = EXCLUDED.state,
			last_error  = '',
			attempts    = p.attempts + 1,
			updated_at  = now()`,
		slug, schema, string(StateProvisioning),
	)
	if err != nil {
		return fmt.Errorf("begin provisioning: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePartition(ctx context.Context, slug, schema string, revs []Revision) error {
	if len(revs) == 0 {
		return ErrNoBaseline
	}
	last := revs[len(revs)-1].Version

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		// A failed attempt rolls its schema back, so an existing schema
		// belongs to someone else and must be left alone.
		if err := pg.CreateSchema(ctx, tx, schema); err != nil {
			if pg.IsDuplicateSchemaError(err) {
				return fmt.Errorf("%w: %q: %w", ErrSchemaExists, schema, err)
			}
			return fmt.Errorf("create schema: %w", err)
		}
		if err := pg.SetLocalSearchPath(ctx, tx, schema); err != nil {
			return err
		}
		for _, rev := range revs {
			if rev.SQL == "" {
				continue
			}
			if _, err := tx.Exec(ctx, rev.SQL); err != nil {
				return fmt.Errorf("revision %d (%s): %w", rev.Version, rev.Name, err)
			}
		}

		_, err := tx.Exec(ctx, `
			UPDATE `+s.catalog+`
			SET revision = $2, state = $3, last_error = '', updated_at = now()
			WHERE slug = $1`,
			slug, last, string(StateReady),
		)
		return err
	})
}

func (s *PostgresStore) ApplyRevision(ctx context.Context, slug, schema string, rev Revision) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var current int64
		err := tx.QueryRow(ctx, `SELECT revision FROM `+s.catalog+` WHERE slug = $1 FOR UPDATE`, slug).Scan(&current)
		if pg.IsNotFoundError(err) {
			return ErrPartitionNotFound
		}
		if err != nil {
			return err
		}
		if current >= rev.Version {
			return nil
		}

		if rev.SQL != "" {
			if err := pg.SetLocalSearchPath(ctx, tx, schema); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, rev.SQL); err != nil {
				return fmt.Errorf("revision %d (%s): %w", rev.Version, rev.Name, err)
			}
		}

		_, err = tx.Exec(ctx, `UPDATE `+s.catalog+` SET revision = $2, updated_at = now() WHERE slug = $1`, slug, rev.Version)
		return err
	})
}

func (s *PostgresStore) MarkState(ctx context.Context, slug string, state State, lastErr string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE `+s.catalog+`
		SET state = $2, last_error = $3, updated_at = now()
		WHERE slug = $1`,
		slug, string(state), lastErr,
	)
	if err != nil {
		return fmt.Errorf("mark partition %s: %w", state, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPartitionNotFound
	}
	return nil
}

func (s *PostgresStore) DropPartition(ctx context.Context, slug, schema string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := pg.DropSchema(ctx, tx, schema); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		_, err := tx.Exec(ctx, `DELETE FROM `+s.catalog+` WHERE slug = $1`, slug)
		return err
	})
}

func (s *PostgresStore) ForgetPartition(ctx context.Context, slug string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM `+s.catalog+` WHERE slug = $1`, slug); err != nil {
		return fmt.Errorf("forget partition: %w", err)
	}
	return nil
}

func (s *PostgresStore) SharedRevision(ctx context.Context) (int64, error) {
	rev, err := pg.SharedVersion(ctx, s.pool, s.cfg)
	if pg.IsUndefinedTableError(err) {
		return 0, nil
	}
	return rev, err
}

func (s *PostgresStore) MigrateShared(ctx context.Context, target int64) (int64, error) {
	return pg.Migrate(ctx, s.pool, s.cfg, s.sharedFS, s.sharedDir, target, s.log)
}

func scanPartition(row pgx.Row) (Partition, error) {
	var (
		p     Partition
		state string
	)
	if err := row.Scan(&p.Slug, &p.Schema, &p.Revision, &state, &p.LastError, &p.Attempts, &p.UpdatedAt); err != nil {
		return Partition{}, err
	}
	p.State = State(state)
	if !p.State.Valid() {
		return Partition{}, errors.New("unknown partition state " + state)
	}
	return p, nil
}
