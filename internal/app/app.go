// Package app assembles the tenant isolation core for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantkit/migrations"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/onboarding"
	"github.com/dmitrymomot/tenantkit/svc/provision"
	"github.com/dmitrymomot/tenantkit/svc/registry"
	"github.com/dmitrymomot/tenantkit/svc/schemarouter"
)

// Cache backends accepted in tenant.Config.CacheBackend.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

var ErrUnknownCacheBackend = errors.New("unknown tenant cache backend")

// App holds the wired services. Close releases its connections.
type App struct {
	Pool         *pgxpool.Pool
	Redis        *goredis.Client
	Cache        tenant.Cache
	Registry     *registry.Registry
	Engine       *provision.Engine
	SchemaRouter *schemarouter.Router
	Onboarding   *onboarding.Service

	log *slog.Logger
}

// Open connects to PostgreSQL (and Redis when it backs the tenant cache) and
// wires the services. It does not migrate anything.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = logger.Discard()
	}

	revisions, err := provision.LoadRevisions(migrations.Tenant, migrations.TenantDir)
	if err != nil {
		return nil, err
	}

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return nil, err
	}
	a := &App{Pool: pool, log: log}

	if a.Cache, err = a.openCache(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	store := provision.NewPostgresStore(pool, cfg.PG, migrations.Shared, migrations.SharedDir, log)
	a.Engine = provision.New(store, revisions, cfg.Provision, log)
	a.Registry = registry.New(registry.NewPostgresStorage(pool),
		registry.WithCache(a.Cache),
		registry.WithLogger(log),
		registry.WithReservedSlugs(cfg.PG.SharedSchema),
		registry.WithServingGuard(a.Engine.RequireReady),
	)
	a.SchemaRouter = schemarouter.New(a.Engine, pool, log)
	a.Onboarding = onboarding.New(a.Registry, a.Engine, log)
	return a, nil
}

func (a *App) openCache(ctx context.Context, cfg Config) (tenant.Cache, error) {
	switch cfg.Tenant.CacheBackend {
	case CacheMemory, "":
		return tenant.NewMemoryCache(cfg.Tenant.CacheSize, cfg.Tenant.CacheTTL), nil
	case CacheNone:
		return tenant.NewNoopCache(), nil
	case CacheRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = client
		return tenant.NewRedisCache(client, cfg.Tenant.RedisPrefix, a.log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCacheBackend, cfg.Tenant.CacheBackend)
	}
}

// MigrateShared brings the shared namespace to the latest revision. Tenant
// partitions are left to UpgradeAll.
func (a *App) MigrateShared(ctx context.Context, cfg Config) (int64, error) {
	return pg.Migrate(ctx, a.Pool, cfg.PG, migrations.Shared, migrations.SharedDir, 0, a.log)
}

// Checks returns the readiness checks of the opened dependencies.
func (a *App) Checks() map[string]httpserver.Check {
	checks := map[string]httpserver.Check{
		"postgres": pg.Healthcheck(a.Pool),
	}
	if a.Redis != nil {
		checks["redis"] = redis.Healthcheck(a.Redis)
	}
	return checks
}

func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.log.Error("failed to close redis client", logger.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
