// Command tenantd serves the tenant-scoped API and the operator API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/tenantkit/internal/app"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		logger.New().ErrorContext(ctx, "failed to load config", logger.Error(err))
		return err
	}

	log := app.NewLogger(cfg.Log)
	logger.SetAsDefault(log)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "failed to start", logger.Error(err))
		return err
	}
	defer a.Close()

	rev, err := a.MigrateShared(ctx, cfg)
	if err != nil {
		log.ErrorContext(ctx, "failed to migrate shared namespace", logger.Error(err))
		return err
	}
	log.InfoContext(ctx, "shared namespace ready", logger.Revision(rev))

	srv := httpserver.New(cfg.HTTP, a.Handler(cfg), log)
	if err := srv.Run(ctx); err != nil {
		log.ErrorContext(ctx, "server stopped", logger.Error(err))
		return err
	}
	return nil
}
