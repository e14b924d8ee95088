package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/api"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/artifacts"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/async"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/builds"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/compiler"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/config"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/download"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/generate"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kll-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	output := observability.LogOutput(cfg.Observability.LogFile)
	logger := observability.NewLogger(cfg.Observability.LogLevel, output)
	httpLogger := newHTTPLogger(cfg.Observability.LogLevel, output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	backend, err := openCatalog(ctx, cfg.Catalog, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	store, err := builds.NewStore(cfg.Builds.Dir, logger)
	if err != nil {
		backend.Close(ctx)
		return err
	}

	native, compilerProbe := selectCompiler(cfg.Compiler, logger)
	adapter := compiler.NewAdapter(native, compiler.AdapterOptions{
		Timeout:       cfg.Compiler.Timeout,
		MaxConcurrent: cfg.Compiler.MaxConcurrent,
	}, logger, metrics)

	svc, err := generate.NewService(backend.lookup, store, adapter, generate.Options{
		MaxApps:        cfg.Builds.MaxApps,
		DownloadPrefix: cfg.Builds.DownloadPrefix,
	}, logger, metrics)
	if err != nil {
		backend.Close(ctx)
		return err
	}

	tasks := async.NewGroup(logger)
	if cfg.Artifacts.Enabled() {
		publisher, err := artifacts.NewS3Publisher(ctx, artifacts.Config{
			Bucket:          cfg.Artifacts.S3Bucket,
			Region:          cfg.Artifacts.S3Region,
			Prefix:          cfg.Artifacts.S3Prefix,
			Endpoint:        cfg.Artifacts.S3Endpoint,
			AccessKeyID:     cfg.Artifacts.S3AccessKeyID,
			SecretAccessKey: cfg.Artifacts.S3SecretAccessKey,
		}, logger, metrics)
		if err != nil {
			backend.Close(ctx)
			return err
		}
		svc.WithPublisher(publisher, tasks)
		logger.WithField("bucket", cfg.Artifacts.S3Bucket).Info("Build mirroring enabled")
	}

	apiServer := api.NewServer(svc, download.NewServer(store), api.Options{
		DownloadPrefix: cfg.Builds.DownloadPrefix,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	}, httpLogger, metrics)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(backend.db, backend.redis, store.Root()).
		WithVersion(cfg.Observability.OTelServiceVersion)
	if compilerProbe != nil {
		checker.AddCheck("compiler", observability.Optional, compilerProbe)
	}
	observability.RegisterHealthRoutes(healthMux, checker)
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	usage := builds.NewUsageCollector(store, cfg.Builds.Retention, metrics, logger)
	scheduler := cron.New()
	if _, err := scheduler.AddJob(cfg.Observability.UsageSchedule, usage); err != nil {
		backend.Close(ctx)
		return fmt.Errorf("invalid usage schedule %q: %w", cfg.Observability.UsageSchedule, err)
	}
	usage.Run()
	scheduler.Start()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdown.RegisterShutdownFunc(tasks.Wait)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	logger.WithFields(map[string]interface{}{
		"addr":        httpServer.Addr,
		"health_addr": healthServer.Addr,
		"compiler":    adapter.CompilerName(),
		"catalog":     cfg.Catalog.Driver,
		"builds_dir":  store.Root(),
	}).Info("Starting KodLaewLong server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listen(httpServer) })
	g.Go(func() error { return listen(healthServer) })
	g.Go(func() error {
		err := shutdown.WaitForShutdown(gctx)
		cancel()
		return err
	})

	err = g.Wait()
	if cerr := backend.Close(context.Background()); cerr != nil {
		logger.WithError(cerr).Warn("Catalog close failed")
	}
	if err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listener %s: %w", srv.Addr, err)
	}
	return nil
}

func newHTTPLogger(level observability.LogLevel, output io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetFormatter(&logrus.JSONFormatter{})

	parsed, err := logrus.ParseLevel(level.String())
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}
