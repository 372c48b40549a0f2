// Package tenant resolves which tenant a request belongs to and carries that
// identity through the request without explicit parameter threading.
//
// # Architecture
//
// The package is built around three pieces:
//
// 1. Context carrier - Bind attaches a tenant to a context.Context for the
// duration of a function call; Current reads it back from any depth of the
// call chain. The binding lives in the context value chain, so it follows
// one request across every blocking call and is invisible to goroutines
// serving other requests. It is released when Bind returns, errors or
// panics; a context retained afterwards reads as unbound.
//
// 2. Resolvers - extract a tenant identifier (id or slug) from a request.
//
// 3. Middleware - rejects requests without an identifier, with an unknown
// identifier or for a tenant whose status forbids traffic, then binds the
// tenant for the downstream handler.
//
// # Usage
//
//	mw := tenant.Middleware(
//		tenant.NewHeaderResolver(tenant.DefaultHeader),
//		registry,
//		tenant.WithCacheTTL(30*time.Second),
//	)
//	r.With(mw).Get("/v1/announcements", func(w http.ResponseWriter, r *http.Request) {
//		id := tenant.MustCurrent(r.Context())
//		...
//	})
//
// Background work that must run for a tenant binds explicitly:
//
//	err := tenant.Bind(ctx, t, func(ctx context.Context) error {
//		return reindex(ctx)
//	})
//
// # Caching
//
// Resolved tenants are cached with a TTL. The TTL is the staleness bound for
// status changes: a suspension is enforced no later than one TTL after the
// registry row changed. NewRedisCache shares the cache across instances.
//
// # Error Handling
//
//   - ErrMissingTenantHeader: no identifier on the request (400)
//   - ErrUnknownTenant: identifier matches no tenant (404)
//   - ErrInactiveTenant: tenant exists but does not serve traffic (403)
//   - ErrPartitionUnavailable: partition quarantined or degraded (503)
//   - ErrUnboundContext: tenant-scoped code ran outside Bind (programming defect)
//
// # Partition Names
//
// ValidateSlug and PartitionName are the only gate between a tenant slug and
// the DDL that names its partition. Slugs are restricted to [a-z0-9-].
package tenant
