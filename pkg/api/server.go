package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/download"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/generate"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/httputil"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// Generator runs the generate pipeline
type Generator interface {
	Generate(ctx context.Context, appIDs []string) (*generate.Result, error)
}

// ArtifactOpener resolves a build id to a deliverable artifact
type ArtifactOpener interface {
	Open(buildID string) (*download.Artifact, error)
}

// Options configures the HTTP surface
type Options struct {
	DownloadPrefix string
	CORSOrigins    []string
	MaxBodyBytes   int64
}

// Server represents our API server
type Server struct {
	router    *mux.Router
	generator Generator
	artifacts ArtifactOpener
	opts      Options
	logger    *logrus.Logger
	metrics   *observability.Metrics
	handler   http.Handler
}

// NewServer creates a new API server and registers its routes
func NewServer(generator Generator, artifacts ArtifactOpener, opts Options, logger *logrus.Logger, metrics *observability.Metrics) *Server {
	if opts.DownloadPrefix == "" {
		opts.DownloadPrefix = generate.DefaultDownloadPrefix
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		router:    mux.NewRouter(),
		generator: generator,
		artifacts: artifacts,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
	s.setupRoutes()
	s.handler = s.buildHandler()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))

	s.router.HandleFunc("/api/generate", s.generate).Methods(http.MethodPost)
	s.router.HandleFunc(s.opts.DownloadPrefix+"/{buildId}", s.download).Methods(http.MethodGet, http.MethodHead)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorCode(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
}

// Router returns the bare router, without middleware
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped in the full middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) buildHandler() http.Handler {
	chain := httputil.Chain(
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.CORSMiddleware(s.opts.CORSOrigins),
		httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes),
	)
	return otelhttp.NewHandler(chain(s.router), "kll-api")
}
