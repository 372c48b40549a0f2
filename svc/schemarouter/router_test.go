package schemarouter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/provision"
	"github.com/dmitrymomot/tenantkit/svc/schemarouter"
)

// fakeTx records statements; methods not overridden panic through the nil embedded Tx.
type fakeTx struct {
	pgx.Tx

	mu         sync.Mutex
	statements []string
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.statements = append(tx.statements, sql)
	return pgconn.NewCommandTag("SET"), nil
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

type fakeDB struct {
	mu  sync.Mutex
	txs []*fakeTx
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	tx := &fakeTx{}
	db.txs = append(db.txs, tx)
	return tx, nil
}

func (db *fakeDB) last() *fakeTx {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.txs) == 0 {
		return nil
	}
	return db.txs[len(db.txs)-1]
}

type fakeCatalog map[string]provision.Partition

func (c fakeCatalog) Partition(_ context.Context, slug string) (provision.Partition, error) {
	p, ok := c[slug]
	if !ok {
		return provision.Partition{}, provision.ErrPartitionNotFound
	}
	return p, nil
}

func newTenant(slug string) *tenant.Tenant {
	return &tenant.Tenant{ID: uuid.New(), Slug: slug, Name: slug, Status: tenant.StatusActive}
}

func setup() (*schemarouter.Router, *fakeDB) {
	catalog := fakeCatalog{
		"acme":     {Slug: "acme", Schema: "acme", Revision: 3, State: provision.StateReady},
		"globex":   {Slug: "globex", Schema: "globex", Revision: 3, State: provision.StateReady},
		"building": {Slug: "building", Schema: "building", State: provision.StateProvisioning},
		"broken":   {Slug: "broken", Schema: "broken", State: provision.StateQuarantined},
		"lagging":  {Slug: "lagging", Schema: "lagging", Revision: 1, State: provision.StateDegraded},
	}
	db := &fakeDB{}
	return schemarouter.New(catalog, db, nil), db
}

func TestResolveTarget(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("ready partition", func(t *testing.T) {
		t.Parallel()

		router, _ := setup()
		acme := newTenant("acme")

		err := tenant.Bind(ctx, acme, func(ctx context.Context) error {
			target, err := router.ResolveTarget(ctx)
			require.NoError(t, err)
			assert.Equal(t, "acme", target.Schema)
			assert.Equal(t, int64(3), target.Revision)
			assert.Equal(t, acme.Identity(), target.Tenant)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("unbound context", func(t *testing.T) {
		t.Parallel()

		router, _ := setup()

		_, err := router.ResolveTarget(ctx)
		assert.ErrorIs(t, err, tenant.ErrUnboundContext)
	})

	t.Run("released binding", func(t *testing.T) {
		t.Parallel()

		router, _ := setup()

		var retained context.Context
		require.NoError(t, tenant.Bind(ctx, newTenant("acme"), func(ctx context.Context) error {
			retained = ctx
			return nil
		}))

		_, err := router.ResolveTarget(retained)
		assert.ErrorIs(t, err, tenant.ErrUnboundContext)
	})

	for _, slug := range []string{"building", "broken", "lagging", "missing"} {
		t.Run("unavailable "+slug, func(t *testing.T) {
			t.Parallel()

			router, _ := setup()

			err := tenant.Bind(ctx, newTenant(slug), func(ctx context.Context) error {
				_, err := router.ResolveTarget(ctx)
				return err
			})
			assert.ErrorIs(t, err, tenant.ErrPartitionUnavailable)
		})
	}
}

func TestInTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("scopes search path and commits", func(t *testing.T) {
		t.Parallel()

		router, db := setup()

		err := tenant.Bind(ctx, newTenant("acme"), func(ctx context.Context) error {
			return router.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
				_, err := tx.Exec(ctx, "SELECT 1")
				return err
			})
		})
		require.NoError(t, err)

		tx := db.last()
		require.NotNil(t, tx)
		assert.Equal(t, []string{`SET LOCAL search_path TO "acme"`, "SELECT 1"}, tx.statements)
		assert.True(t, tx.committed)
		assert.False(t, tx.rolledBack)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		t.Parallel()

		router, db := setup()
		boom := errors.New("boom")

		err := tenant.Bind(ctx, newTenant("acme"), func(ctx context.Context) error {
			return router.InTx(ctx, func(context.Context, pgx.Tx) error { return boom })
		})
		assert.ErrorIs(t, err, boom)

		tx := db.last()
		require.NotNil(t, tx)
		assert.False(t, tx.committed)
		assert.True(t, tx.rolledBack)
	})

	t.Run("target used under another tenant", func(t *testing.T) {
		t.Parallel()

		router, db := setup()

		var target *schemarouter.Target
		require.NoError(t, tenant.Bind(ctx, newTenant("acme"), func(ctx context.Context) error {
			var err error
			target, err = router.ResolveTarget(ctx)
			return err
		}))

		err := tenant.Bind(ctx, newTenant("globex"), func(ctx context.Context) error {
			return target.InTx(ctx, func(context.Context, pgx.Tx) error {
				t.Fatal("fn must not run")
				return nil
			})
		})
		assert.ErrorIs(t, err, schemarouter.ErrTargetMismatch)
		assert.Nil(t, db.last())
	})

	t.Run("target used after binding released", func(t *testing.T) {
		t.Parallel()

		router, _ := setup()

		var (
			target   *schemarouter.Target
			retained context.Context
		)
		require.NoError(t, tenant.Bind(ctx, newTenant("acme"), func(ctx context.Context) error {
			var err error
			target, err = router.ResolveTarget(ctx)
			retained = ctx
			return err
		}))

		err := target.InTx(retained, func(context.Context, pgx.Tx) error { return nil })
		assert.ErrorIs(t, err, schemarouter.ErrTargetMismatch)
		assert.ErrorIs(t, err, tenant.ErrUnboundContext)
	})

	t.Run("concurrent tenants stay isolated", func(t *testing.T) {
		t.Parallel()

		router, _ := setup()
		tenants := []*tenant.Tenant{newTenant("acme"), newTenant("globex")}

		var wg sync.WaitGroup
		for i := range 50 {
			tn := tenants[i%2]
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := tenant.Bind(ctx, tn, func(ctx context.Context) error {
					target, err := router.ResolveTarget(ctx)
					if err != nil {
						return err
					}
					assert.Equal(t, tn.Slug, target.Schema)
					return target.InTx(ctx, func(context.Context, pgx.Tx) error { return nil })
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	handler := func(router *schemarouter.Router) http.Handler {
		return router.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			target, ok := schemarouter.FromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusTeapot)
				return
			}
			_, _ = w.Write([]byte(target.Schema))
		}))
	}

	serve := func(slug string) *httptest.ResponseRecorder {
		router, _ := setup()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/partition", nil)
		_ = tenant.Bind(req.Context(), newTenant(slug), func(ctx context.Context) error {
			handler(router).ServeHTTP(rec, req.WithContext(ctx))
			return nil
		})
		return rec
	}

	t.Run("ready", func(t *testing.T) {
		t.Parallel()

		rec := serve("acme")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acme", rec.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()

		rec := serve("broken")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "partition_unavailable")
	})

	t.Run("unbound", func(t *testing.T) {
		t.Parallel()

		router, _ := setup()
		rec := httptest.NewRecorder()
		handler(router).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/partition", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
