package tenant

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultCacheTTL bounds how long a status change may go unnoticed by the middleware.
const DefaultCacheTTL = 30 * time.Second

// Config is the environment-driven part of the middleware setup.
type Config struct {
	// Header carries the tenant id or slug.
	Header string `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`
	// CacheTTL is the staleness bound for status changes.
	CacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"30s"`
	// CacheSize caps the in-memory cache.
	CacheSize int `env:"TENANT_CACHE_SIZE" envDefault:"1000"`
	// CacheBackend is "memory", "redis" or "none".
	CacheBackend string `env:"TENANT_CACHE_BACKEND" envDefault:"memory"`
	// RedisPrefix namespaces keys when CacheBackend is "redis".
	RedisPrefix string `env:"TENANT_CACHE_REDIS_PREFIX" envDefault:"tenant:"`
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type config struct {
	cache        Cache
	cacheTTL     time.Duration
	errorHandler ErrorHandler
	skipPaths    []string
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

// WithCache sets the tenant cache. Pass NewNoopCache() to disable caching.
func WithCache(cache Cache) Option {
	return func(c *config) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithCacheTTL sets the cache TTL, the staleness bound for status changes.
// Non-positive values keep DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets path prefixes that bypass tenant resolution entirely.
// Handlers under these prefixes run unbound.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// WithLogger sets the logger for rejected and failed resolutions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
