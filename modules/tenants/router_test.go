package tenants_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/modules/tenants"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/onboarding"
	"github.com/dmitrymomot/tenantkit/svc/provision"
	"github.com/dmitrymomot/tenantkit/svc/registry"
)

type fixture struct {
	registry *registry.Registry
	store    *provision.MemoryStore
	engine   *provision.Engine
	server   *httptest.Server
}

type envelope struct {
	Code  string          `json:"code"`
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type tenantBody struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Partition *struct {
		State    string `json:"state"`
		Revision int64  `json:"revision"`
	} `json:"partition"`
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store := provision.NewMemoryStore(2)
	engine := provision.New(store, []provision.Revision{{Version: 1, Name: "baseline", SQL: "SELECT 1;"}}, provision.Config{}, nil)
	reg := registry.New(registry.NewMemoryStorage(), registry.WithServingGuard(engine.RequireReady))

	server := httptest.NewServer(tenants.Router(tenants.RouterOptions{
		Registry:   reg,
		Onboarding: onboarding.New(reg, engine, nil),
		Partitions: engine,
	}))
	t.Cleanup(server.Close)

	return &fixture{registry: reg, store: store, engine: engine, server: server}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeTenant(t *testing.T, env envelope) tenantBody {
	t.Helper()
	var body tenantBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	return body
}

func TestCreate(t *testing.T) {
	t.Parallel()

	t.Run("onboards tenant", func(t *testing.T) {
		t.Parallel()

		f := setup(t)

		status, env := f.do(t, http.MethodPost, "/", `{"name":"Acme Inc","trial":true}`)
		require.Equal(t, http.StatusCreated, status)
		body := decodeTenant(t, env)
		assert.Equal(t, "acme-inc", body.Slug)
		assert.Equal(t, "trial", body.Status)
		require.NotNil(t, body.Partition)
		assert.Equal(t, "ready", body.Partition.State)
		assert.Equal(t, int64(2), body.Partition.Revision)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		t.Parallel()

		f := setup(t)

		status, _ := f.do(t, http.MethodPost, "/", `{"name":"Acme","slug":"acme"}`)
		require.Equal(t, http.StatusCreated, status)

		status, env := f.do(t, http.MethodPost, "/", `{"name":"Acme","slug":"acme"}`)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "conflict", env.Code)
	})

	t.Run("invalid slug", func(t *testing.T) {
		t.Parallel()

		f := setup(t)

		status, env := f.do(t, http.MethodPost, "/", `{"name":"Acme","slug":"pg_catalog"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "unprocessable_entity", env.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		f := setup(t)

		status, env := f.do(t, http.MethodPost, "/", `{"name":"Acme","owner":"x"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "bad_request", env.Code)
	})

	t.Run("provisioning failure", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		f.store.SetFailFunc(func(op, _ string, _ int64) error {
			if op == "create" {
				return assert.AnError
			}
			return nil
		})

		status, env := f.do(t, http.MethodPost, "/", `{"name":"Acme","slug":"acme"}`)
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, "provisioning_failed", env.Code)
		body := decodeTenant(t, env)
		assert.Equal(t, "failed", body.Status)
		require.NotNil(t, body.Partition)
		assert.Equal(t, "quarantined", body.Partition.State)

		f.store.SetFailFunc(nil)

		status, env = f.do(t, http.MethodPost, "/acme/activate", "")
		require.Equal(t, http.StatusOK, status)
		body = decodeTenant(t, env)
		assert.Equal(t, "active", body.Status)
		assert.Equal(t, "ready", body.Partition.State)
	})
}

func TestGetListUpdate(t *testing.T) {
	t.Parallel()

	f := setup(t)

	_, env := f.do(t, http.MethodPost, "/", `{"name":"Acme","slug":"acme","subscription_tier":"pro"}`)
	acme := decodeTenant(t, env)
	_, _ = f.do(t, http.MethodPost, "/", `{"name":"Globex","slug":"globex","trial":true}`)

	t.Run("get by id and slug", func(t *testing.T) {
		status, env := f.do(t, http.MethodGet, "/"+acme.ID, "")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "acme", decodeTenant(t, env).Slug)

		status, env = f.do(t, http.MethodGet, "/acme", "")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, acme.ID, decodeTenant(t, env).ID)
	})

	t.Run("get unknown", func(t *testing.T) {
		status, env := f.do(t, http.MethodGet, "/ghost", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "not_found", env.Code)
	})

	t.Run("list with filter", func(t *testing.T) {
		status, env := f.do(t, http.MethodGet, "/?status=trial", "")
		require.Equal(t, http.StatusOK, status)

		var list []tenantBody
		require.NoError(t, json.Unmarshal(env.Data, &list))
		require.Len(t, list, 1)
		assert.Equal(t, "globex", list[0].Slug)
		assert.EqualValues(t, 1, env.Meta["count"])
	})

	t.Run("suspend then invalid transition", func(t *testing.T) {
		status, env := f.do(t, http.MethodPatch, "/acme", `{"status":"suspended"}`)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "suspended", decodeTenant(t, env).Status)

		status, env = f.do(t, http.MethodPatch, "/acme", `{"status":"pending"}`)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "invalid_transition", env.Code)

		status, env = f.do(t, http.MethodPost, "/acme/activate", "")
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "conflict", env.Code)
	})

	t.Run("partitions", func(t *testing.T) {
		status, env := f.do(t, http.MethodGet, "/partitions", "")
		require.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 2, env.Meta["count"])
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("activating a pending tenant provisions it", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		created, err := f.registry.Create(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"})
		require.NoError(t, err)

		status, env := f.do(t, http.MethodPatch, "/"+created.ID.String(), `{"status":"active"}`)
		require.Equal(t, http.StatusOK, status)
		body := decodeTenant(t, env)
		assert.Equal(t, "active", body.Status)
		require.NotNil(t, body.Partition)
		assert.Equal(t, "ready", body.Partition.State)

		p, err := f.engine.Partition(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, provision.StateReady, p.State)
	})

	t.Run("activation applies the other fields too", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		_, err := f.registry.Create(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"})
		require.NoError(t, err)

		status, env := f.do(t, http.MethodPatch, "/acme", `{"status":"trial","name":"Acme Corp"}`)
		require.Equal(t, http.StatusOK, status)
		body := decodeTenant(t, env)
		assert.Equal(t, "trial", body.Status)
		assert.Equal(t, "Acme Corp", body.Name)
	})

	t.Run("failed provisioning keeps the tenant closed", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		_, err := f.registry.Create(ctx, registry.CreateParams{Slug: "acme", Name: "Acme"})
		require.NoError(t, err)
		f.store.SetFailFunc(func(op, _ string, _ int64) error {
			if op == "create" {
				return assert.AnError
			}
			return nil
		})

		status, env := f.do(t, http.MethodPatch, "/acme", `{"status":"active"}`)
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, "provisioning_failed", env.Code)

		got, err := f.registry.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusFailed, got.Status)
	})

	t.Run("reopening a deprovisioned tenant is refused", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		status, _ := f.do(t, http.MethodPost, "/", `{"name":"Acme","slug":"acme"}`)
		require.Equal(t, http.StatusCreated, status)

		status, _ = f.do(t, http.MethodPatch, "/acme", `{"status":"inactive"}`)
		require.Equal(t, http.StatusOK, status)
		require.NoError(t, f.engine.Deprovision(ctx, "acme"))

		status, env := f.do(t, http.MethodPatch, "/acme", `{"status":"active"}`)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "partition_not_ready", env.Code)

		got, err := f.registry.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusInactive, got.Status)
	})
}

func TestUpgrade(t *testing.T) {
	t.Parallel()

	t.Run("latest", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		f.store.SetSharedRevision(1)
		_, _ = f.do(t, http.MethodPost, "/", `{"name":"Acme","slug":"acme"}`)

		status, env := f.do(t, http.MethodPost, "/upgrade", `{}`)
		require.Equal(t, http.StatusOK, status)

		var report provision.Report
		require.NoError(t, json.Unmarshal(env.Data, &report))
		assert.Equal(t, int64(2), report.Target)
		assert.Equal(t, []string{"acme"}, report.Upgraded)
	})

	t.Run("unknown revision", func(t *testing.T) {
		t.Parallel()

		f := setup(t)

		status, env := f.do(t, http.MethodPost, "/upgrade", `{"target":9}`)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "unknown_revision", env.Code)
	})

	t.Run("incomplete", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		f.store.SetSharedRevision(1)
		_, _ = f.do(t, http.MethodPost, "/", `{"name":"Acme","slug":"acme"}`)
		f.store.SetFailFunc(func(op, _ string, _ int64) error {
			if op == "apply" {
				return assert.AnError
			}
			return nil
		})

		status, env := f.do(t, http.MethodPost, "/upgrade", `{}`)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "upgrade_incomplete", env.Code)

		var report provision.Report
		require.NoError(t, json.Unmarshal(env.Data, &report))
		assert.Contains(t, report.Failed, "acme")
	})
}
