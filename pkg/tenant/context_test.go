package tenant_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func TestBind(t *testing.T) {
	t.Parallel()

	t.Run("current returns bound tenant at any depth", func(t *testing.T) {
		t.Parallel()

		acme := createTestTenant("acme", tenant.StatusActive)
		deep := func(ctx context.Context) (tenant.Identity, error) {
			return tenant.Current(ctx)
		}

		err := tenant.Bind(context.Background(), acme, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			id, err := deep(ctx)
			require.NoError(t, err)
			assert.Equal(t, acme.ID, id.ID)
			assert.Equal(t, "acme", id.Slug)
			assert.True(t, tenant.Bound(ctx))

			full, ok := tenant.FromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, acme.Name, full.Name)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("bound row is a private copy", func(t *testing.T) {
		t.Parallel()

		acme := createTestTenant("acme", tenant.StatusActive)
		acme.Settings = map[string]any{"limits": map[string]any{"seats": 5}}

		err := tenant.Bind(context.Background(), acme, func(ctx context.Context) error {
			acme.Settings["limits"].(map[string]any)["seats"] = 50

			full, ok := tenant.FromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, 5, full.Settings["limits"].(map[string]any)["seats"])

			full.Name = "changed"
			full.Settings["limits"] = nil

			again, ok := tenant.FromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, acme.Name, again.Name)
			assert.Equal(t, 5, again.Settings["limits"].(map[string]any)["seats"])
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("unbound context fails closed", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.Current(context.Background())
		assert.ErrorIs(t, err, tenant.ErrUnboundContext)
		assert.False(t, tenant.Bound(context.Background()))

		_, ok := tenant.FromContext(context.Background())
		assert.False(t, ok)

		assert.PanicsWithError(t, tenant.ErrUnboundContext.Error(), func() {
			tenant.MustCurrent(context.Background())
		})
	})

	t.Run("body error is returned and binding released", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		var retained context.Context

		err := tenant.Bind(context.Background(), createTestTenant("acme", tenant.StatusActive), func(ctx context.Context) error {
			retained = ctx
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, tenant.Bound(retained))
	})

	t.Run("retained context is unbound after return", func(t *testing.T) {
		t.Parallel()

		var retained context.Context
		err := tenant.Bind(context.Background(), createTestTenant("acme", tenant.StatusActive), func(ctx context.Context) error {
			retained = ctx
			return nil
		})
		require.NoError(t, err)

		_, err = tenant.Current(retained)
		assert.ErrorIs(t, err, tenant.ErrUnboundContext)
	})

	t.Run("binding released when body panics", func(t *testing.T) {
		t.Parallel()

		var retained context.Context
		assert.PanicsWithValue(t, "handler exploded", func() {
			_ = tenant.Bind(context.Background(), createTestTenant("acme", tenant.StatusActive), func(ctx context.Context) error {
				retained = ctx
				panic("handler exploded")
			})
		})

		require.NotNil(t, retained)
		assert.False(t, tenant.Bound(retained))
	})

	t.Run("cancelled context is rejected without running body", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ran := false
		err := tenant.Bind(ctx, createTestTenant("acme", tenant.StatusActive), func(context.Context) error {
			ran = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ran)
	})

	t.Run("rebinding to another tenant is rejected", func(t *testing.T) {
		t.Parallel()

		acme := createTestTenant("acme", tenant.StatusActive)
		globex := createTestTenant("globex", tenant.StatusActive)

		err := tenant.Bind(context.Background(), acme, func(ctx context.Context) error {
			inner := tenant.Bind(ctx, globex, func(context.Context) error {
				t.Fatal("body must not run")
				return nil
			})
			assert.ErrorIs(t, inner, tenant.ErrRebind)

			id := tenant.MustCurrent(ctx)
			assert.Equal(t, "acme", id.Slug)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("nesting the same tenant keeps outer binding alive", func(t *testing.T) {
		t.Parallel()

		acme := createTestTenant("acme", tenant.StatusActive)
		err := tenant.Bind(context.Background(), acme, func(outer context.Context) error {
			err := tenant.Bind(outer, acme, func(inner context.Context) error {
				assert.Equal(t, "acme", tenant.MustCurrent(inner).Slug)
				return nil
			})
			require.NoError(t, err)
			assert.True(t, tenant.Bound(outer))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("released outer binding allows binding a new tenant", func(t *testing.T) {
		t.Parallel()

		var retained context.Context
		_ = tenant.Bind(context.Background(), createTestTenant("acme", tenant.StatusActive), func(ctx context.Context) error {
			retained = ctx
			return nil
		})

		err := tenant.Bind(retained, createTestTenant("globex", tenant.StatusActive), func(ctx context.Context) error {
			assert.Equal(t, "globex", tenant.MustCurrent(ctx).Slug)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		t.Parallel()

		noop := func(context.Context) error { return nil }
		assert.ErrorIs(t, tenant.Bind(context.Background(), nil, noop), tenant.ErrInvalidBinding)
		assert.ErrorIs(t, tenant.Bind(context.Background(), createTestTenant("acme", tenant.StatusActive), nil), tenant.ErrInvalidBinding)
		assert.ErrorIs(t, tenant.Bind(context.Background(), &tenant.Tenant{}, noop), tenant.ErrInvalidBinding)
	})
}

func TestBindConcurrentIsolation(t *testing.T) {
	t.Parallel()

	const workers = 64

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	start := make(chan struct{})

	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			own := createTestTenant(fmt.Sprintf("tenant-%d", i), tenant.StatusActive)
			errs <- tenant.Bind(context.Background(), own, func(ctx context.Context) error {
				for range 20 {
					// Yield between reads so bodies of other tenants interleave.
					time.Sleep(time.Millisecond)
					id, err := tenant.Current(ctx)
					if err != nil {
						return err
					}
					if id.ID != own.ID {
						return fmt.Errorf("worker %d observed tenant %s", i, id.Slug)
					}
				}
				return nil
			})
		}(i)
	}

	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := tenant.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	err := tenant.Bind(context.Background(), createTestTenant("acme", tenant.StatusActive), func(ctx context.Context) error {
		attr, ok := extract(ctx)
		require.True(t, ok)
		assert.Equal(t, "tenant", attr.Key)
		assert.Equal(t, "acme", attr.Value.String())
		return nil
	})
	require.NoError(t, err)
}
