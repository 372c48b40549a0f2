package tenant

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache stores resolved tenants for a bounded time. The TTL is the staleness
// bound for status changes: a suspension becomes visible to the middleware no
// later than one TTL after the registry row changed.
type Cache interface {
	// Get retrieves a tenant by key. Expired entries are misses.
	Get(ctx context.Context, key string) (*Tenant, bool)

	// Set stores a tenant under key for ttl. A ttl <= 0 stores nothing.
	Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration)

	// Delete removes key.
	Delete(ctx context.Context, key string)

	// Close releases resources held by the cache.
	Close() error
}

// DefaultCacheSize is the default maximum number of cached tenants.
const DefaultCacheSize = 1000

type memoryCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	maxSize int
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type memoryEntry struct {
	key       string
	tenant    *Tenant
	expiresAt time.Time
}

// NewMemoryCache returns an LRU cache with TTL expiry and a janitor goroutine
// that sweeps expired entries every interval. Call Close to stop the janitor.
func NewMemoryCache(maxSize int, interval time.Duration) Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	if interval <= 0 {
		interval = time.Minute
	}

	c := &memoryCache{
		items:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.janitor(interval)
	return c
}

func (c *memoryCache) Get(_ context.Context, key string) (*Tenant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*memoryEntry)
	if !c.now().Before(entry.expiresAt) {
		c.removeElement(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.tenant.Clone(), true
}

func (c *memoryCache) Set(_ context.Context, key string, tenant *Tenant, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	tenant = tenant.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.tenant = tenant
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	c.items[key] = c.order.PushFront(&memoryEntry{key: key, tenant: tenant, expiresAt: expiresAt})
}

func (c *memoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

func (c *memoryCache) Close() error {
	c.once.Do(func() {
		close(c.stop)
		<-c.done
	})
	return nil
}

func (c *memoryCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*memoryEntry).key)
}

func (c *memoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *memoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*memoryEntry).expiresAt) {
			c.removeElement(el)
		}
		el = prev
	}
}

// noopCache never stores anything; every lookup goes to the provider.
type noopCache struct{}

// NewNoopCache disables caching.
func NewNoopCache() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) (*Tenant, bool) { return nil, false }
func (noopCache) Set(context.Context, string, *Tenant, time.Duration) {}
func (noopCache) Delete(context.Context, string) {}
func (noopCache) Close() error { return nil }
