package tenant

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant.
type Status string

const (
	StatusPending   Status = "pending"
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusTrial, StatusActive, StatusInactive, StatusSuspended, StatusFailed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(allStatuses, s)
}

// Serving reports whether a tenant in this status may receive tenant-scoped traffic.
func (s Status) Serving() bool {
	return s == StatusActive || s == StatusTrial
}

func (s Status) String() string {
	return string(s)
}

// Tenant is a row of the tenant registry.
type Tenant struct {
	ID               uuid.UUID      `json:"id"`
	Slug             string         `json:"slug"`
	Name             string         `json:"name"`
	Status           Status         `json:"status"`
	SubscriptionTier string         `json:"subscription_tier"`
	Settings         map[string]any `json:"settings,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Clone returns a copy that shares nothing mutable with t, Settings included.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Settings != nil {
		cp.Settings = cloneValue(t.Settings).(map[string]any)
	}
	return &cp
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[k] = cloneValue(item)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, item := range v {
			s[i] = cloneValue(item)
		}
		return s
	default:
		return v
	}
}

// Identity returns the part of the tenant exposed through the context carrier.
func (t *Tenant) Identity() Identity {
	return Identity{ID: t.ID, Slug: t.Slug}
}

// Identity is the resolved tenant identity bound to a unit of work.
type Identity struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
}

// Provider loads tenants by id or slug.
// Returns ErrUnknownTenant if nothing matches the identifier.
type Provider interface {
	GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, identifier string) (*Tenant, error)

func (f ProviderFunc) GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	return f(ctx, identifier)
}

const (
	// MaxSlugLength keeps partition names within PostgreSQL's 63 byte identifier limit.
	MaxSlugLength = 63
)

// slugPattern: lowercase alphanumerics and inner hyphens only.
var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

// reservedSlugs would collide with namespaces PostgreSQL, common extensions or
// the deployment already own. Names with underscores (pg_catalog,
// information_schema) never pass slugPattern.
var reservedSlugs = []string{
	"public", "shared", "admin",
	"cron", "topology", "tiger", "extensions", "partman", "repack", "pgbouncer",
	"auth", "storage", "realtime", "graphql", "vault",
}

// ValidateSlug checks slug against the partition naming whitelist.
func ValidateSlug(slug string) error {
	if slug == "" || len(slug) > MaxSlugLength || !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	if slices.Contains(reservedSlugs, slug) {
		return fmt.Errorf("%w: %q", ErrReservedSlug, slug)
	}
	return nil
}

// PartitionName is the only constructor of tenant partition names.
// The partition is named after the slug; the slug is re-validated on every call.
func PartitionName(slug string) (string, error) {
	if err := ValidateSlug(slug); err != nil {
		return "", err
	}
	return slug, nil
}
