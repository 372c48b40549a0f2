package provision

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// FailFunc lets tests inject failures into MemoryStore. op is "create" for
// each revision applied while building a partition and "apply" for upgrade
// steps. A non-nil error aborts that operation with no effect.
type FailFunc func(op, slug string, version int64) error

// MemoryStore keeps the catalog and partition contents in memory. It
// mirrors the transactional guarantees of PostgresStore and is meant for
// tests and local development.
type MemoryStore struct {
	mu         sync.Mutex
	locks      map[string]chan struct{}
	partitions map[string]Partition
	applied    map[string][]int64
	schemas    map[string]struct{}
	shared     int64
	latest     int64
	fail       FailFunc
	now        func() time.Time
}

// NewMemoryStore returns a store whose shared namespace can be migrated up
// to latest. The shared namespace starts at latest too; see SetSharedRevision.
func NewMemoryStore(latest int64) *MemoryStore {
	return &MemoryStore{
		locks:      make(map[string]chan struct{}),
		partitions: make(map[string]Partition),
		applied:    make(map[string][]int64),
		schemas:    make(map[string]struct{}),
		shared:     latest,
		latest:     latest,
		now:        time.Now,
	}
}

func (s *MemoryStore) SetSharedRevision(rev int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared = rev
}

func (s *MemoryStore) SetFailFunc(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fn
}

// Applied returns the revision versions applied to the partition of slug, in order.
func (s *MemoryStore) Applied(slug string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.applied[slug])
}

// PutSchema records a schema that exists outside the catalog, such as an
// extension's namespace.
func (s *MemoryStore) PutSchema(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[name] = struct{}{}
}

func (s *MemoryStore) HasSchema(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.schemas[name]
	return ok
}

// PutPartition writes a catalog row as is. Built states get their schema too.
func (s *MemoryStore) PutPartition(p Partition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	if p.State == StateReady || p.State == StateDegraded {
		s.schemas[p.Schema] = struct{}{}
	}
	s.partitions[p.Slug] = p
}

func (s *MemoryStore) Lock(ctx context.Context, slug string) (func(), error) {
	s.mu.Lock()
	ch, ok := s.locks[slug]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[slug] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}

func (s *MemoryStore) Partition(ctx context.Context, slug string) (Partition, error) {
	if err := ctx.Err(); err != nil {
		return Partition{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[slug]
	if !ok {
		return Partition{}, ErrPartitionNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListPartitions(ctx context.Context) ([]Partition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Collect(maps.Values(s.partitions))
	slices.SortFunc(out, func(a, b Partition) int {
		return strings.Compare(a.Slug, b.Slug)
	})
	return out, nil
}

func (s *MemoryStore) BeginProvisioning(ctx context.Context, slug, schema string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partitions[slug]
	s.partitions[slug] = Partition{
		Slug:      slug,
		Schema:    schema,
		State:     StateProvisioning,
		Attempts:  p.Attempts + 1,
		UpdatedAt: s.now(),
	}
	return nil
}

func (s *MemoryStore) CreatePartition(ctx context.Context, slug, schema string, revs []Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(revs) == 0 {
		return ErrNoBaseline
	}
	if _, ok := s.schemas[schema]; ok {
		return fmt.Errorf("%w: %q", ErrSchemaExists, schema)
	}

	applied := make([]int64, 0, len(revs))
	for _, rev := range revs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.fail != nil {
			if err := s.fail("create", slug, rev.Version); err != nil {
				return err
			}
		}
		applied = append(applied, rev.Version)
	}

	p := s.partitions[slug]
	p.Slug, p.Schema = slug, schema
	p.State = StateReady
	p.LastError = ""
	p.Revision = revs[len(revs)-1].Version
	p.UpdatedAt = s.now()
	s.partitions[slug] = p
	s.applied[slug] = applied
	s.schemas[schema] = struct{}{}
	return nil
}

func (s *MemoryStore) ApplyRevision(ctx context.Context, slug, schema string, rev Revision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[slug]
	if !ok {
		return ErrPartitionNotFound
	}
	if p.Revision >= rev.Version {
		return nil
	}
	if s.fail != nil {
		if err := s.fail("apply", slug, rev.Version); err != nil {
			return err
		}
	}

	p.Revision = rev.Version
	p.UpdatedAt = s.now()
	s.partitions[slug] = p
	s.applied[slug] = append(s.applied[slug], rev.Version)
	return nil
}

func (s *MemoryStore) MarkState(ctx context.Context, slug string, state State, lastErr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[slug]
	if !ok {
		return ErrPartitionNotFound
	}
	p.State = state
	p.LastError = lastErr
	p.UpdatedAt = s.now()
	s.partitions[slug] = p
	return nil
}

func (s *MemoryStore) DropPartition(ctx context.Context, slug, schema string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.partitions, slug)
	delete(s.applied, slug)
	delete(s.schemas, schema)
	return nil
}

func (s *MemoryStore) ForgetPartition(ctx context.Context, slug string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.partitions, slug)
	delete(s.applied, slug)
	return nil
}

func (s *MemoryStore) SharedRevision(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shared, nil
}

func (s *MemoryStore) MigrateShared(ctx context.Context, target int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if target <= 0 || target > s.latest {
		target = s.latest
	}
	if target > s.shared {
		s.shared = target
	}
	return s.shared, nil
}
