// Package logger builds *slog.Logger instances from functional options and
// injects request-scoped values, such as the bound tenant and the request id,
// into every record through ContextExtractor callbacks.
//
// # Usage
//
//	log := logger.New(
//		append(logger.FromConfig(cfg.Log),
//			logger.WithContextExtractors(
//				tenant.LoggerExtractor(),
//				requestid.LoggerExtractor(),
//			),
//		)...,
//	)
//	log.InfoContext(ctx, "partition upgraded",
//		logger.Partition(name),
//		logger.Revision(rev),
//	)
//
// Attribute helpers (Tenant, Partition, Revision, State, Error...) keep key
// names consistent across packages. Error and Errors return an empty Attr for
// nil errors, so they can be passed without a nil check.
package logger
