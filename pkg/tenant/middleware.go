package tenant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/tenantkit/core"
)

// Middleware resolves the tenant of every request, validates it against the
// provider and binds it for the rest of the request via Bind. Requests are
// rejected with ErrMissingTenantHeader, ErrUnknownTenant or ErrInactiveTenant;
// the binding is released when the downstream handler returns or panics.
func Middleware(resolver Resolver, provider Provider, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		cacheTTL:     DefaultCacheTTL,
		errorHandler: WriteError,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.cache == nil {
		cfg.cache = NewMemoryCache(DefaultCacheSize, 0)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			t, err := resolve(r, resolver, provider, cfg)
			if err != nil {
				if cfg.logger != nil && !isClientError(err) {
					cfg.logger.ErrorContext(r.Context(), "tenant resolution failed", "error", err)
				}
				cfg.errorHandler(w, r, err)
				return
			}

			err = Bind(r.Context(), t, func(ctx context.Context) error {
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err != nil && cfg.logger != nil {
				// Only reachable when the client went away before binding.
				cfg.logger.DebugContext(r.Context(), "tenant binding skipped", "tenant", t.Slug, "error", err)
			}
		})
	}
}

func resolve(r *http.Request, resolver Resolver, provider Provider, cfg *config) (*Tenant, error) {
	identifier, err := resolver(r)
	if err != nil {
		if errors.Is(err, ErrInvalidIdentifier) {
			// A malformed identifier can never match a registry row.
			return nil, errors.Join(ErrUnknownTenant, err)
		}
		return nil, err
	}
	if identifier == "" {
		return nil, ErrMissingTenantHeader
	}

	t, ok := cfg.cache.Get(r.Context(), identifier)
	if !ok {
		t, err = provider.GetByIdentifier(r.Context(), identifier)
		if err != nil {
			return nil, err
		}
		cfg.cache.Set(r.Context(), identifier, t, cfg.cacheTTL)
	}

	if !t.Status.Serving() {
		return nil, ErrInactiveTenant
	}
	return t, nil
}

func isClientError(err error) bool {
	return errors.Is(err, ErrMissingTenantHeader) ||
		errors.Is(err, ErrUnknownTenant) ||
		errors.Is(err, ErrInactiveTenant)
}

// HTTPError maps the tenant error taxonomy onto response codes.
func HTTPError(err error) core.HTTPError {
	switch {
	case errors.Is(err, ErrMissingTenantHeader):
		return core.ErrMissingTenantHeader
	case errors.Is(err, ErrUnknownTenant):
		return core.ErrUnknownTenant
	case errors.Is(err, ErrInactiveTenant):
		return core.ErrInactiveTenant
	case errors.Is(err, ErrPartitionUnavailable):
		return core.ErrPartitionUnavailable
	default:
		return core.ErrInternalServerError
	}
}

// WriteError is the default ErrorHandler. It renders a JSON body whose code is
// one of missing_tenant_header, unknown_tenant, inactive_tenant,
// partition_unavailable or internal_server_error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	_ = core.JSONError(HTTPError(err)).Render(w, r)
}
