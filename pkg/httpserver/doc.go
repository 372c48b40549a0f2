// Package httpserver runs an http.Server until its context is cancelled and
// then drains in-flight requests within Config.ShutdownTimeout.
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.New(cfg.HTTP, router, log)
//	if err := srv.Run(ctx); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// HealthCheckHandler aggregates dependency checks such as pg.Healthcheck and
// redis.Healthcheck into a single readiness endpoint.
package httpserver
