package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/slug"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// derivedSlugAttempts bounds retries with a random suffix when a slug derived
// from the name is already taken.
const derivedSlugAttempts = 3

// CreateParams describes a new tenant. Slug is derived from Name when empty.
type CreateParams struct {
	Slug             string         `json:"slug,omitempty" yaml:"slug"`
	Name             string         `json:"name" yaml:"name"`
	SubscriptionTier string         `json:"subscription_tier,omitempty" yaml:"subscription_tier"`
	Settings         map[string]any `json:"settings,omitempty" yaml:"settings"`
}

// UpdateParams holds a partial update; nil fields are left unchanged.
// The slug is immutable because it names the tenant's partition.
type UpdateParams struct {
	Name             *string         `json:"name,omitempty"`
	Status           *tenant.Status  `json:"status,omitempty"`
	SubscriptionTier *string         `json:"subscription_tier,omitempty"`
	Settings         *map[string]any `json:"settings,omitempty"`
}

// ServingGuard decides whether the tenant with slug may start serving
// traffic. It is consulted whenever a status change moves a tenant into a
// serving status; a non-nil error rejects the change.
type ServingGuard func(ctx context.Context, slug string) error

// Registry is the durable catalog of tenants and their lifecycle state.
type Registry struct {
	storage  Storage
	cache    tenant.Cache
	log      *slog.Logger
	now      func() time.Time
	reserved []string
	guard    ServingGuard
}

// Option configures a Registry.
type Option func(*Registry)

// WithCache sets the resolution cache whose entries Update invalidates.
func WithCache(cache tenant.Cache) Option {
	return func(r *Registry) {
		r.cache = cache
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithReservedSlugs rejects slugs on top of the names tenant.ValidateSlug
// already refuses, such as the configured shared namespace.
func WithReservedSlugs(slugs ...string) Option {
	return func(r *Registry) {
		for _, s := range slugs {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				r.reserved = append(r.reserved, s)
			}
		}
	}
}

// WithServingGuard sets the check that must pass before a tenant enters a
// serving status.
func WithServingGuard(guard ServingGuard) Option {
	return func(r *Registry) {
		r.guard = guard
	}
}

// New creates a Registry on top of storage.
func New(storage Storage, opts ...Option) *Registry {
	r := &Registry{
		storage: storage,
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a tenant in status pending. It does not provision.
func (r *Registry) Create(ctx context.Context, params CreateParams) (*tenant.Tenant, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	explicit := strings.TrimSpace(params.Slug) != ""
	s := strings.ToLower(strings.TrimSpace(params.Slug))
	if !explicit {
		s = DeriveSlug(name)
	}
	if err := r.validateSlug(s); err != nil {
		if explicit {
			return nil, errors.Join(ErrInvalidSlug, err)
		}
		// Names like "Public" or "東京" derive to nothing usable.
		s = slug.Make(name, slug.WithSuffix(6), slug.MaxLength(tenant.MaxSlugLength))
	}

	now := r.now().UTC()
	t := &tenant.Tenant{
		ID:               uuid.New(),
		Slug:             s,
		Name:             name,
		Status:           tenant.StatusPending,
		SubscriptionTier: strings.TrimSpace(params.SubscriptionTier),
		Settings:         maps.Clone(params.Settings),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	for attempt := 0; ; attempt++ {
		err := r.storage.Insert(ctx, t)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrSlugTaken) || explicit || attempt >= derivedSlugAttempts {
			return nil, err
		}
		t.Slug = slug.Make(name, slug.WithSuffix(4), slug.MaxLength(tenant.MaxSlugLength))
	}

	r.log.InfoContext(ctx, "tenant created",
		logger.Tenant(t.Slug),
		logger.TenantID(t.ID),
	)
	return t, nil
}

// Get looks a tenant up by id (UUID-shaped input) or slug.
func (r *Registry) Get(ctx context.Context, idOrSlug string) (*tenant.Tenant, error) {
	key := strings.ToLower(strings.TrimSpace(idOrSlug))
	if id, err := uuid.Parse(key); err == nil {
		return r.storage.GetByID(ctx, id)
	}
	if tenant.ValidateSlug(key) != nil {
		return nil, ErrNotFound
	}
	return r.storage.GetBySlug(ctx, key)
}

// GetByIdentifier implements tenant.Provider.
func (r *Registry) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	t, err := r.Get(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return nil, errors.Join(tenant.ErrUnknownTenant, err)
	}
	return t, err
}

// List returns tenants matching filter. Limit defaults to 100.
func (r *Registry) List(ctx context.Context, filter Filter) ([]*tenant.Tenant, error) {
	for _, s := range filter.Statuses {
		if !s.Valid() {
			return nil, errors.Join(ErrInvalidStatus, errors.New(string(s)))
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return r.storage.List(ctx, filter)
}

// Update applies params to the tenant with id. Status changes are checked
// against the lifecycle and against concurrent writers. Cached copies of the
// tenant are invalidated on success.
func (r *Registry) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*tenant.Tenant, error) {
	current, err := r.storage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, ErrInvalidName
		}
		next.Name = name
	}
	if params.Status != nil {
		if err := checkTransition(current.Status, *params.Status); err != nil {
			return nil, err
		}
		if r.guard != nil && params.Status.Serving() && !current.Status.Serving() {
			if err := r.guard(ctx, current.Slug); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNotProvisioned, err)
			}
		}
		next.Status = *params.Status
	}
	if params.SubscriptionTier != nil {
		next.SubscriptionTier = strings.TrimSpace(*params.SubscriptionTier)
	}
	if params.Settings != nil {
		next.Settings = maps.Clone(*params.Settings)
	}
	next.UpdatedAt = r.now().UTC()

	if err := r.storage.Update(ctx, &next, current.Status); err != nil {
		return nil, err
	}
	r.invalidate(ctx, &next)

	if next.Status != current.Status {
		r.log.InfoContext(ctx, "tenant status changed",
			logger.Tenant(next.Slug),
			slog.String("from", string(current.Status)),
			slog.String("to", string(next.Status)),
		)
	}
	return &next, nil
}

// SetStatus is Update with only a status change.
func (r *Registry) SetStatus(ctx context.Context, id uuid.UUID, status tenant.Status) (*tenant.Tenant, error) {
	return r.Update(ctx, id, UpdateParams{Status: &status})
}

func (r *Registry) invalidate(ctx context.Context, t *tenant.Tenant) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(ctx, t.ID.String())
	r.cache.Delete(ctx, t.Slug)
}

func (r *Registry) validateSlug(s string) error {
	if err := tenant.ValidateSlug(s); err != nil {
		return err
	}
	// Get would read it as an id.
	if _, err := uuid.Parse(s); err == nil {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, s)
	}
	if slices.Contains(r.reserved, s) {
		return fmt.Errorf("%w: %q", tenant.ErrReservedSlug, s)
	}
	return nil
}

// DeriveSlug builds a partition-safe slug from a display name.
func DeriveSlug(name string) string {
	return slug.Make(name,
		slug.CustomReplace(map[string]string{"&": "and", "+": "plus", "@": "at"}),
		slug.MaxLength(tenant.MaxSlugLength),
	)
}
