package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/tenantkit/modules/tenants"
	"github.com/dmitrymomot/tenantkit/modules/workspace"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/provision"
	"github.com/dmitrymomot/tenantkit/svc/schemarouter"
)

// Registry is what the HTTP surface needs from the tenant registry:
// resolution for the middleware and the operator API.
type Registry interface {
	tenant.Provider
	tenants.Registry
}

// RoutesOptions carries the services mounted by Routes.
type RoutesOptions struct {
	Registry     Registry
	Onboarding   tenants.Onboarding
	Engine       *provision.Engine
	SchemaRouter *schemarouter.Router
	Cache        tenant.Cache
	Tenant       tenant.Config
	Checks       map[string]httpserver.Check
	Logger       *slog.Logger
}

// Routes builds the HTTP surface:
//
//	GET  /healthz          readiness of the dependencies
//	     /admin/tenants/*  operator API
//	     /v1/*             tenant-scoped API behind tenant resolution
func Routes(opts RoutesOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(log, 2*time.Second, opts.Checks))

	r.Mount("/admin/tenants", tenants.Router(tenants.RouterOptions{
		Registry:   opts.Registry,
		Onboarding: opts.Onboarding,
		Partitions: opts.Engine,
		Logger:     log,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(tenant.Middleware(
			tenant.NewHeaderResolver(opts.Tenant.Header),
			opts.Registry,
			tenant.WithCache(opts.Cache),
			tenant.WithCacheTTL(opts.Tenant.CacheTTL),
			tenant.WithLogger(log),
		))
		r.Mount("/", workspace.Router(workspace.RouterOptions{
			Router: opts.SchemaRouter,
			Logger: log,
		}))
	})

	return r
}

// Handler is Routes over the services of a.
func (a *App) Handler(cfg Config) http.Handler {
	return Routes(RoutesOptions{
		Registry:     a.Registry,
		Onboarding:   a.Onboarding,
		Engine:       a.Engine,
		SchemaRouter: a.SchemaRouter,
		Cache:        a.Cache,
		Tenant:       cfg.Tenant,
		Checks:       a.Checks(),
		Logger:       a.log,
	})
}
