// Package tenants is the operator API over the tenant registry and the
// partition engine. It must only be mounted behind operator authentication.
package tenants

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/handler"
	"github.com/dmitrymomot/tenantkit/pkg/binder"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/provision"
	"github.com/dmitrymomot/tenantkit/svc/registry"
)

// Registry is the part of *registry.Registry the API uses.
type Registry interface {
	Get(ctx context.Context, idOrSlug string) (*tenant.Tenant, error)
	List(ctx context.Context, filter registry.Filter) ([]*tenant.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, params registry.UpdateParams) (*tenant.Tenant, error)
}

// Onboarding is the part of *onboarding.Service the API uses.
type Onboarding interface {
	Onboard(ctx context.Context, params registry.CreateParams, trial bool) (*tenant.Tenant, error)
	Activate(ctx context.Context, idOrSlug string, trial bool) (*tenant.Tenant, error)
}

// Partitions is the part of *provision.Engine the API uses.
type Partitions interface {
	Partition(ctx context.Context, slug string) (provision.Partition, error)
	Partitions(ctx context.Context) ([]provision.Partition, error)
	UpgradeAll(ctx context.Context, target int64) (provision.Report, error)
}

// RouterOptions carries the services behind the API. All are required.
type RouterOptions struct {
	Registry   Registry
	Onboarding Onboarding
	Partitions Partitions
	Logger     *slog.Logger
}

// Router mounts:
//
//	POST  /                create, provision and open a tenant
//	GET   /                list tenants (?status=active,trial&tier=pro&limit=&offset=)
//	POST  /upgrade         bring every partition to a structural revision
//	GET   /partitions      list the partition catalog
//	GET   /{id}            tenant and its partition, by id or slug
//	PATCH /{id}            rename, retier, change settings or status
//	POST  /{id}/activate   retry provisioning of a pending or failed tenant
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	h := &handlers{
		registry:   opts.Registry,
		onboarding: opts.Onboarding,
		partitions: opts.Partitions,
		log:        log.With(logger.Component("tenants-api")),
	}
	wrapOpts := []handler.Option{handler.WithLogger(h.log)}

	r := chi.NewRouter()
	r.Post("/", handler.Wrap(h.create, append(wrapOpts, handler.WithBinders(binder.JSON(0)))...))
	r.Get("/", handler.Wrap(h.list, append(wrapOpts, handler.WithBinders(binder.Query()))...))
	r.Post("/upgrade", handler.Wrap(h.upgrade, append(wrapOpts, handler.WithBinders(binder.JSON(0)))...))
	r.Get("/partitions", handler.Wrap(h.listPartitions, wrapOpts...))
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", handler.Wrap(h.get, append(wrapOpts, handler.WithBinders(binder.Path(chi.URLParam)))...))
		r.Patch("/", handler.Wrap(h.update, append(wrapOpts, handler.WithBinders(binder.Path(chi.URLParam), binder.JSON(0)))...))
		r.Post("/activate", handler.Wrap(h.activate, append(wrapOpts, handler.WithBinders(binder.Path(chi.URLParam), binder.Query()))...))
	})
	return r
}
