// Package onboarding wires tenant creation end to end: a registry row, its
// partition, then the status that lets traffic in.
package onboarding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/provision"
	"github.com/dmitrymomot/tenantkit/svc/registry"
)

// ErrNotActivatable is returned by Activate for tenants that were paused on
// purpose (inactive or suspended).
var ErrNotActivatable = errors.New("tenant cannot be activated from its current status")

const statusWriteTimeout = 10 * time.Second

// Tenants is the part of *registry.Registry onboarding needs.
type Tenants interface {
	Create(ctx context.Context, params registry.CreateParams) (*tenant.Tenant, error)
	Get(ctx context.Context, idOrSlug string) (*tenant.Tenant, error)
	SetStatus(ctx context.Context, id uuid.UUID, status tenant.Status) (*tenant.Tenant, error)
}

// Provisioner is the part of *provision.Engine onboarding needs.
type Provisioner interface {
	Provision(ctx context.Context, t *tenant.Tenant) (provision.Result, error)
	Partition(ctx context.Context, slug string) (provision.Partition, error)
}

type Service struct {
	tenants Tenants
	engine  Provisioner
	log     *slog.Logger
}

func New(tenants Tenants, engine Provisioner, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		tenants: tenants,
		engine:  engine,
		log:     log.With(logger.Component("onboarding")),
	}
}

// Onboard registers a tenant, provisions its partition and opens it for
// traffic as trial or active. When provisioning fails the tenant is left in
// status failed and returned together with the error; Activate retries it.
func (s *Service) Onboard(ctx context.Context, params registry.CreateParams, trial bool) (*tenant.Tenant, error) {
	t, err := s.tenants.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	if _, err := s.engine.Provision(ctx, t); err != nil {
		return s.fail(ctx, t, err)
	}

	t, err = s.tenants.SetStatus(ctx, t.ID, target(trial))
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "tenant onboarded", logger.Tenant(t.Slug), logger.TenantID(t.ID))
	return t, nil
}

// Activate retries provisioning for a pending or failed tenant. Only the
// caller whose Provision built the partition flips the status; a concurrent
// caller that lost the race returns the tenant as it finds it. A tenant whose
// partition was already built before the call (a crash between build and
// status write) is flipped as well.
func (s *Service) Activate(ctx context.Context, idOrSlug string, trial bool) (*tenant.Tenant, error) {
	t, err := s.tenants.Get(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	switch t.Status {
	case tenant.StatusPending, tenant.StatusFailed:
	case tenant.StatusActive, tenant.StatusTrial:
		return t, nil
	default:
		return t, ErrNotActivatable
	}

	builtBefore, err := s.built(ctx, t.Slug)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.Provision(ctx, t)
	if err != nil {
		return s.fail(ctx, t, err)
	}

	if !res.Created && !builtBefore {
		// Another caller built it during this call and owns the status write.
		return s.tenants.Get(ctx, t.ID.String())
	}

	updated, err := s.tenants.SetStatus(ctx, t.ID, target(trial))
	if errors.Is(err, registry.ErrStatusConflict) {
		return s.tenants.Get(ctx, t.ID.String())
	}
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "tenant activated",
		logger.Tenant(updated.Slug),
		slog.Bool("created", res.Created),
	)
	return updated, nil
}

func (s *Service) built(ctx context.Context, slug string) (bool, error) {
	p, err := s.engine.Partition(ctx, slug)
	if errors.Is(err, provision.ErrPartitionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.State == provision.StateReady || p.State == provision.StateDegraded, nil
}

func (s *Service) fail(ctx context.Context, t *tenant.Tenant, cause error) (*tenant.Tenant, error) {
	s.log.ErrorContext(ctx, "tenant provisioning failed", logger.Tenant(t.Slug), logger.Error(cause))

	if t.Status == tenant.StatusFailed {
		return t, cause
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	failed, err := s.tenants.SetStatus(ctx, t.ID, tenant.StatusFailed)
	if err != nil {
		return t, errors.Join(cause, err)
	}
	return failed, cause
}

func target(trial bool) tenant.Status {
	if trial {
		return tenant.StatusTrial
	}
	return tenant.StatusActive
}
