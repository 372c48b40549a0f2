package onboarding_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/onboarding"
	"github.com/dmitrymomot/tenantkit/svc/provision"
	"github.com/dmitrymomot/tenantkit/svc/registry"
)

var revisions = []provision.Revision{
	{Version: 1, Name: "baseline", SQL: "CREATE TABLE users (id UUID PRIMARY KEY);"},
}

var errInjected = errors.New("injected failure")

type fixture struct {
	registry *registry.Registry
	store    *provision.MemoryStore
	engine   *provision.Engine
	service  *onboarding.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store := provision.NewMemoryStore(1)
	engine := provision.New(store, revisions, provision.Config{}, nil)
	reg := registry.New(registry.NewMemoryStorage(), registry.WithServingGuard(engine.RequireReady))
	return &fixture{
		registry: reg,
		store:    store,
		engine:   engine,
		service:  onboarding.New(reg, engine, nil),
	}
}

// racingProvisioner builds the partition but reports it as built by someone
// else, like a caller that lost the lock race.
type racingProvisioner struct {
	*provision.Engine
}

func (p racingProvisioner) Provision(ctx context.Context, t *tenant.Tenant) (provision.Result, error) {
	res, err := p.Engine.Provision(ctx, t)
	res.Created = false
	return res, err
}

type countingTenants struct {
	*registry.Registry
	setStatus atomic.Int32
}

func (c *countingTenants) SetStatus(ctx context.Context, id uuid.UUID, status tenant.Status) (*tenant.Tenant, error) {
	c.setStatus.Add(1)
	return c.Registry.SetStatus(ctx, id, status)
}

func failCreate(op, _ string, _ int64) error {
	if op == "create" {
		return errInjected
	}
	return nil
}

func TestOnboard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("active tenant with ready partition", func(t *testing.T) {
		t.Parallel()

		f := setup(t)

		tn, err := f.service.Onboard(ctx, registry.CreateParams{Name: "Acme Inc"}, false)
		require.NoError(t, err)
		assert.Equal(t, "acme-inc", tn.Slug)
		assert.Equal(t, tenant.StatusActive, tn.Status)

		p, err := f.engine.Partition(ctx, tn.Slug)
		require.NoError(t, err)
		assert.Equal(t, provision.StateReady, p.State)
	})

	t.Run("trial", func(t *testing.T) {
		t.Parallel()

		f := setup(t)

		tn, err := f.service.Onboard(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"}, true)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusTrial, tn.Status)
	})

	t.Run("provisioning failure marks tenant failed", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		f.store.SetFailFunc(failCreate)

		tn, err := f.service.Onboard(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"}, false)
		assert.ErrorIs(t, err, provision.ErrProvisioningFailed)
		require.NotNil(t, tn)
		assert.Equal(t, tenant.StatusFailed, tn.Status)

		stored, err := f.registry.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusFailed, stored.Status)

		p, err := f.engine.Partition(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, provision.StateQuarantined, p.State)
	})

	t.Run("invalid params", func(t *testing.T) {
		t.Parallel()

		f := setup(t)

		_, err := f.service.Onboard(ctx, registry.CreateParams{Slug: "Bad Slug", Name: "Acme"}, false)
		assert.ErrorIs(t, err, registry.ErrInvalidSlug)

		partitions, err := f.engine.Partitions(ctx)
		require.NoError(t, err)
		assert.Empty(t, partitions)
	})
}

func TestActivate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("retries failed tenant", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		f.store.SetFailFunc(failCreate)

		_, err := f.service.Onboard(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"}, false)
		require.Error(t, err)

		f.store.SetFailFunc(nil)

		tn, err := f.service.Activate(ctx, "acme", false)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusActive, tn.Status)

		p, err := f.engine.Partition(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, provision.StateReady, p.State)
		assert.Equal(t, 2, p.Attempts)
	})

	t.Run("failing again keeps tenant failed", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		f.store.SetFailFunc(failCreate)

		_, err := f.service.Onboard(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"}, false)
		require.Error(t, err)

		tn, err := f.service.Activate(ctx, "acme", true)
		assert.ErrorIs(t, err, provision.ErrProvisioningFailed)
		assert.Equal(t, tenant.StatusFailed, tn.Status)
	})

	t.Run("pending tenant", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		created, err := f.registry.Create(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"})
		require.NoError(t, err)

		tn, err := f.service.Activate(ctx, created.ID.String(), true)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusTrial, tn.Status)
	})

	t.Run("pending tenant with ready partition", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		created, err := f.registry.Create(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"})
		require.NoError(t, err)
		_, err = f.engine.Provision(ctx, created)
		require.NoError(t, err)

		tn, err := f.service.Activate(ctx, "acme", false)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusActive, tn.Status)
		assert.Equal(t, []int64{1}, f.store.Applied("acme"))
	})

	t.Run("already serving", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		_, err := f.service.Onboard(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"}, true)
		require.NoError(t, err)

		tn, err := f.service.Activate(ctx, "acme", false)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusTrial, tn.Status)
	})

	t.Run("suspended", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		tn, err := f.service.Onboard(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"}, false)
		require.NoError(t, err)
		_, err = f.registry.SetStatus(ctx, tn.ID, tenant.StatusSuspended)
		require.NoError(t, err)

		_, err = f.service.Activate(ctx, "acme", false)
		assert.ErrorIs(t, err, onboarding.ErrNotActivatable)
	})

	t.Run("concurrent calls converge", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		created, err := f.registry.Create(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tn, err := f.service.Activate(ctx, created.ID.String(), false)
				if assert.NoError(t, err) {
					assert.Contains(t, []tenant.Status{tenant.StatusPending, tenant.StatusActive}, tn.Status)
				}
			}()
		}
		wg.Wait()

		got, err := f.registry.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusActive, got.Status)
		assert.Equal(t, []int64{1}, f.store.Applied("acme"))
	})

	t.Run("caller that lost the build leaves the status alone", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		created, err := f.registry.Create(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"})
		require.NoError(t, err)

		tenants := &countingTenants{Registry: f.registry}
		service := onboarding.New(tenants, racingProvisioner{Engine: f.engine}, nil)

		tn, err := service.Activate(ctx, created.ID.String(), false)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusPending, tn.Status)
		assert.Zero(t, tenants.setStatus.Load())

		p, err := f.engine.Partition(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, provision.StateReady, p.State)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		_, err := f.service.Activate(ctx, "ghost", false)
		assert.ErrorIs(t, err, registry.ErrNotFound)
	})
}
