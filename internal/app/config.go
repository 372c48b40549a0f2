package app

import (
	"log/slog"

	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/provision"
)

// Config is the complete environment of the binaries.
type Config struct {
	Log       logger.Config
	PG        pg.Config
	Redis     redis.Config
	HTTP      httpserver.Config
	Tenant    tenant.Config
	Provision provision.Config
}

// LoadConfig reads Config from the environment and ./.env.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds the process logger. Records carry the bound tenant and the
// request id when their context has them.
func NewLogger(cfg logger.Config) *slog.Logger {
	opts := append(logger.FromConfig(cfg),
		logger.WithContextExtractors(tenant.LoggerExtractor(), requestid.LoggerExtractor()),
	)
	return logger.New(opts...)
}
