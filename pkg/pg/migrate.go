package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// goose keeps its dialect, base FS and table name in package globals.
var gooseMu sync.Mutex

// Migrate brings the shared namespace up to target using the goose
// migrations found at dir inside fsys. A target <= 0 applies everything.
// It returns the shared structural revision after the run.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, fsys fs.FS, dir string, target int64, log logger) (int64, error) {
	if fsys == nil {
		return 0, errors.Join(ErrFailedToApplyMigrations, ErrMigrationsNotProvided)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}(db)

	if err := setupGoose(fsys, cfg, log); err != nil {
		return 0, errors.Join(ErrFailedToApplyMigrations, err)
	}
	defer goose.SetBaseFS(nil)

	var err error
	if target > 0 {
		err = goose.UpToContext(ctx, db, dir, target)
	} else {
		err = goose.UpContext(ctx, db, dir)
	}
	if err != nil {
		return 0, errors.Join(ErrFailedToApplyMigrations, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, errors.Join(ErrFailedToApplyMigrations, err)
	}
	return version, nil
}

// SharedVersion returns the goose version currently recorded for the shared namespace.
func SharedVersion(ctx context.Context, pool *pgxpool.Pool, cfg Config) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetTableName(cfg.MigrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}

func setupGoose(fsys fs.FS, cfg Config, log logger) error {
	goose.SetBaseFS(fsys)
	goose.SetLogger(newSlogAdapter(log))
	goose.SetTableName(cfg.MigrationsTable)
	return goose.SetDialect("postgres")
}

// migrateSlogAdapter routes goose's Printf-style output into slog.
type migrateSlogAdapter struct {
	log logger
}

func newSlogAdapter(log logger) goose.Logger {
	return &migrateSlogAdapter{log: log}
}

func (a *migrateSlogAdapter) Fatalf(format string, v ...any) {
	a.log.ErrorContext(context.Background(), fmt.Sprintf(format, v...))
}

func (a *migrateSlogAdapter) Printf(format string, v ...any) {
	a.log.InfoContext(context.Background(), fmt.Sprintf(format, v...))
}
