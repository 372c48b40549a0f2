package tenants

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/tenantkit/core"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/provision"
	"github.com/dmitrymomot/tenantkit/svc/registry"
)

type handlers struct {
	registry   Registry
	onboarding Onboarding
	partitions Partitions
	log        *slog.Logger
}

type createRequest struct {
	Name             string         `json:"name"`
	Slug             string         `json:"slug,omitempty"`
	SubscriptionTier string         `json:"subscription_tier,omitempty"`
	Settings         map[string]any `json:"settings,omitempty"`
	Trial            bool           `json:"trial,omitempty"`
}

type listRequest struct {
	Statuses []tenant.Status `query:"status"`
	Tier     string          `query:"tier"`
	Limit    int             `query:"limit"`
	Offset   int             `query:"offset"`
}

type idRequest struct {
	ID string `path:"id" json:"-"`
}

type updateRequest struct {
	ID               string          `path:"id" json:"-"`
	Name             *string         `json:"name,omitempty"`
	Status           *tenant.Status  `json:"status,omitempty"`
	SubscriptionTier *string         `json:"subscription_tier,omitempty"`
	Settings         *map[string]any `json:"settings,omitempty"`
}

type activateRequest struct {
	ID    string `path:"id"`
	Trial bool   `query:"trial"`
}

type upgradeRequest struct {
	// Target is the structural revision to reach; 0 means latest.
	Target int64 `json:"target,omitempty"`
}

// tenantView is a tenant together with its partition, when it has one.
type tenantView struct {
	*tenant.Tenant
	Partition *provision.Partition `json:"partition,omitempty"`
}

func (h *handlers) fail(ctx context.Context, op string, err error) core.Response {
	err = httpError(err)
	var httpErr core.HTTPError
	if !errors.As(err, &httpErr) {
		h.log.ErrorContext(ctx, "admin request failed", logger.Operation(op), logger.Error(err))
	}
	return core.JSONError(err)
}

func (h *handlers) view(ctx context.Context, t *tenant.Tenant) tenantView {
	v := tenantView{Tenant: t}
	if p, err := h.partitions.Partition(ctx, t.Slug); err == nil {
		v.Partition = &p
	}
	return v
}

func (h *handlers) create(ctx context.Context, req createRequest) core.Response {
	t, err := h.onboarding.Onboard(ctx, registry.CreateParams{
		Slug:             req.Slug,
		Name:             req.Name,
		SubscriptionTier: req.SubscriptionTier,
		Settings:         req.Settings,
	}, req.Trial)
	if err != nil {
		if t != nil {
			// Registered but not provisioned: report the failed tenant too.
			h.log.ErrorContext(ctx, "tenant onboarding failed", logger.Tenant(t.Slug), logger.Error(err))
			return core.JSONWithStatus(ErrProvisioning.Code, ErrProvisioning.Key, h.view(ctx, t), nil)
		}
		return h.fail(ctx, "create", err)
	}
	return core.JSONWithStatus(http.StatusCreated, "created", h.view(ctx, t), nil)
}

func (h *handlers) list(ctx context.Context, req listRequest) core.Response {
	list, err := h.registry.List(ctx, registry.Filter{
		Statuses:         req.Statuses,
		SubscriptionTier: req.Tier,
		Limit:            req.Limit,
		Offset:           req.Offset,
	})
	if err != nil {
		return h.fail(ctx, "list", err)
	}
	if list == nil {
		list = []*tenant.Tenant{}
	}
	return core.JSON("ok", list, map[string]any{"count": len(list)})
}

func (h *handlers) get(ctx context.Context, req idRequest) core.Response {
	t, err := h.registry.Get(ctx, req.ID)
	if err != nil {
		return h.fail(ctx, "get", err)
	}
	return core.JSON("ok", h.view(ctx, t), nil)
}

func (h *handlers) update(ctx context.Context, req updateRequest) core.Response {
	t, err := h.registry.Get(ctx, req.ID)
	if err != nil {
		return h.fail(ctx, "update", err)
	}

	params := registry.UpdateParams{
		Name:             req.Name,
		Status:           req.Status,
		SubscriptionTier: req.SubscriptionTier,
		Settings:         req.Settings,
	}

	// Opening a tenant that never got a partition is an activation: it must
	// provision first.
	if req.Status != nil && req.Status.Serving() && awaitsProvisioning(t.Status) {
		t, err = h.onboarding.Activate(ctx, t.ID.String(), *req.Status == tenant.StatusTrial)
		if err != nil {
			return h.fail(ctx, "update", err)
		}
		params.Status = nil
		if params.Name == nil && params.SubscriptionTier == nil && params.Settings == nil {
			return core.JSON("updated", h.view(ctx, t), nil)
		}
	}

	t, err = h.registry.Update(ctx, t.ID, params)
	if err != nil {
		return h.fail(ctx, "update", err)
	}
	return core.JSON("updated", h.view(ctx, t), nil)
}

func awaitsProvisioning(s tenant.Status) bool {
	return s == tenant.StatusPending || s == tenant.StatusFailed
}

func (h *handlers) activate(ctx context.Context, req activateRequest) core.Response {
	t, err := h.onboarding.Activate(ctx, req.ID, req.Trial)
	if err != nil {
		return h.fail(ctx, "activate", err)
	}
	return core.JSON("activated", h.view(ctx, t), nil)
}

func (h *handlers) upgrade(ctx context.Context, req upgradeRequest) core.Response {
	report, err := h.partitions.UpgradeAll(ctx, req.Target)
	if errors.Is(err, provision.ErrUpgradeIncomplete) {
		return core.JSONWithStatus(http.StatusInternalServerError, "upgrade_incomplete", report, nil)
	}
	if err != nil {
		return h.fail(ctx, "upgrade", err)
	}
	return core.JSON("upgraded", report, nil)
}

func (h *handlers) listPartitions(ctx context.Context, _ struct{}) core.Response {
	list, err := h.partitions.Partitions(ctx)
	if err != nil {
		return h.fail(ctx, "partitions", err)
	}
	if list == nil {
		list = []provision.Partition{}
	}
	return core.JSON("ok", list, map[string]any{"count": len(list)})
}
