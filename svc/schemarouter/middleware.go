package schemarouter

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

type targetKey struct{}

// Middleware resolves the partition once per request and stores the Target in
// the request context. It must run behind tenant.Middleware. Requests whose
// partition is not ready are answered with 503 partition_unavailable.
func (r *Router) Middleware(errorHandler tenant.ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = tenant.WriteError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			target, err := r.ResolveTarget(req.Context())
			if err != nil {
				errorHandler(w, req, err)
				return
			}
			next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), targetKey{}, target)))
		})
	}
}

// FromContext returns the Target stored by Middleware.
func FromContext(ctx context.Context) (*Target, bool) {
	target, ok := ctx.Value(targetKey{}).(*Target)
	return target, ok && target != nil
}
