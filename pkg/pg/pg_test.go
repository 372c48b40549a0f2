package pg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	t.Run("quotes plain names", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, `"acme"`, pg.QuoteIdent("acme"))
	})

	t.Run("keeps hyphens inside quotes", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, `"acme-corp"`, pg.QuoteIdent("acme-corp"))
	})

	t.Run("escapes embedded quotes", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, `"a""b"`, pg.QuoteIdent(`a"b`))
	})
}

func TestLockKey(t *testing.T) {
	t.Parallel()

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, pg.LockKey("provision", "acme"), pg.LockKey("provision", "acme"))
	})

	t.Run("separates namespaces", func(t *testing.T) {
		t.Parallel()
		assert.NotEqual(t, pg.LockKey("provision", "acme"), pg.LockKey("upgrade", "acme"))
	})

	t.Run("separates names", func(t *testing.T) {
		t.Parallel()
		assert.NotEqual(t, pg.LockKey("provision", "acme"), pg.LockKey("provision", "globex"))
	})
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	wrap := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, pg.IsDuplicateKeyError(wrap("23505")))
	assert.False(t, pg.IsDuplicateKeyError(wrap("23503")))
	assert.True(t, pg.IsDuplicateSchemaError(wrap("42P06")))
	assert.True(t, pg.IsUndefinedTableError(wrap("42P01")))
	assert.True(t, pg.IsNotFoundError(fmt.Errorf("get: %w", pgx.ErrNoRows)))

	assert.False(t, pg.IsNotFoundError(nil))
	assert.False(t, pg.IsDuplicateKeyError(nil))
	assert.False(t, pg.IsDuplicateKeyError(errors.New("plain")))
}
