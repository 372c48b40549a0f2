package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// QuoteIdent renders name as a safely quoted SQL identifier.
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// execer is satisfied by pgx.Tx, *pgx.Conn and *pgxpool.Pool.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SetLocalSearchPath scopes unqualified names to schema for the rest of the
// current transaction only.
func SetLocalSearchPath(ctx context.Context, tx execer, schema string) error {
	if schema == "" {
		return ErrInvalidIdentifier
	}
	if _, err := tx.Exec(ctx, "SET LOCAL search_path TO "+QuoteIdent(schema)); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	return nil
}

// CreateSchema creates schema; it fails if the schema already exists.
func CreateSchema(ctx context.Context, tx execer, schema string) error {
	if schema == "" {
		return ErrInvalidIdentifier
	}
	_, err := tx.Exec(ctx, "CREATE SCHEMA "+QuoteIdent(schema))
	return err
}

// DropSchema removes schema and everything inside it. Missing schemas are ignored.
func DropSchema(ctx context.Context, tx execer, schema string) error {
	if schema == "" {
		return ErrInvalidIdentifier
	}
	_, err := tx.Exec(ctx, "DROP SCHEMA IF EXISTS "+QuoteIdent(schema)+" CASCADE")
	return err
}
