package registry

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// MemoryStorage keeps tenants in process memory. For tests and local runs.
type MemoryStorage struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*tenant.Tenant
	bySlug map[string]uuid.UUID
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID:   make(map[uuid.UUID]*tenant.Tenant),
		bySlug: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStorage) Insert(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bySlug[t.Slug]; ok {
		return ErrSlugTaken
	}
	if _, ok := s.byID[t.ID]; ok {
		return ErrSlugTaken
	}
	s.byID[t.ID] = t.Clone()
	s.bySlug[t.Slug] = t.ID
	return nil
}

func (s *MemoryStorage) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryStorage) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStorage) List(_ context.Context, filter Filter) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*tenant.Tenant, 0, len(s.byID))
	for _, t := range s.byID {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		if filter.SubscriptionTier != "" && t.SubscriptionTier != filter.SubscriptionTier {
			continue
		}
		all = append(all, t)
	}
	slices.SortFunc(all, func(a, b *tenant.Tenant) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Slug, b.Slug)
	})

	if filter.Offset >= len(all) {
		return []*tenant.Tenant{}, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}

	out := make([]*tenant.Tenant, len(all))
	for i, t := range all {
		out[i] = t.Clone()
	}
	return out, nil
}

func (s *MemoryStorage) Update(_ context.Context, t *tenant.Tenant, prevStatus tenant.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[t.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != prevStatus {
		return ErrStatusConflict
	}

	next := t.Clone()
	next.Slug = stored.Slug
	next.CreatedAt = stored.CreatedAt
	s.byID[t.ID] = next
	return nil
}
