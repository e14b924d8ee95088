// Package observability provides structured logging, Prometheus metrics, health
// checks and OpenTelemetry tracing for the installer build service.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, observability.LogOutput(cfg.LogFile))
//	logger.WithField("build_id", id).Info("build created")
//
// LogOutput rotates the file through lumberjack when a path is set.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordCompile("ps2exe", "nativeExecutable", time.Since(start))
//
// All Record helpers accept a nil *Metrics, so components can run without one.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, "./builds").
//		AddCheck("compiler", observability.Optional, probe)
//	status := checker.Check(ctx)
//
// The build root must exist and be writable and the catalog database is
// required when configured. Redis and the compiler only degrade readiness.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{...}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// Pipeline stages run in child spans:
//
//	err := observability.Stage(ctx, "catalog.GetItemsByIDs", func(ctx context.Context) error { ... })
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
