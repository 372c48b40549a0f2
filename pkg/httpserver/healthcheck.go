package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/tenantkit/core"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Check tests one dependency (database, cache).
type Check func(ctx context.Context) error

// HealthCheckHandler runs every check with the request context bounded by
// timeout. It answers 200 with each check marked "ok", or 503 when any check
// fails. Failure details are logged, not returned.
func HealthCheckHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		status := http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Component(name), logger.Error(err))
				results[name] = "failing"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		code := "ready"
		if status != http.StatusOK {
			code = "not_ready"
		}
		_ = core.JSONWithStatus(status, code, results, nil).Render(w, r)
	}
}
