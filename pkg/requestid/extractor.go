package requestid

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// LoggerExtractor adds the request id to every record logged with the request context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return logger.RequestID(id), true
		}
		return slog.Attr{}, false
	}
}
