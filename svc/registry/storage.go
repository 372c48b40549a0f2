package registry

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Storage persists tenant rows in the shared namespace.
type Storage interface {
	// Insert stores a new tenant. Returns ErrSlugTaken when the slug exists.
	Insert(ctx context.Context, t *tenant.Tenant) error

	// GetByID returns ErrNotFound when no row matches.
	GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)

	// GetBySlug returns ErrNotFound when no row matches.
	GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)

	// List returns tenants matching filter ordered by creation time.
	List(ctx context.Context, filter Filter) ([]*tenant.Tenant, error)

	// Update writes the mutable fields of t if the stored status still equals
	// prevStatus. Returns ErrStatusConflict otherwise, ErrNotFound for a missing row.
	Update(ctx context.Context, t *tenant.Tenant, prevStatus tenant.Status) error
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Statuses         []tenant.Status
	SubscriptionTier string
	Limit            int
	Offset           int
}
