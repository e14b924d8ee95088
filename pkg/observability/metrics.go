package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Generation metrics
	GenerateTotal    *prometheus.CounterVec
	GenerateDuration prometheus.Histogram

	// Native compilation metrics
	CompileTotal     *prometheus.CounterVec
	CompileDuration  *prometheus.HistogramVec
	CompilesInFlight prometheus.Gauge

	// Delivery metrics
	DownloadsTotal *prometheus.CounterVec
	DownloadBytes  *prometheus.CounterVec

	// Build store metrics
	BuildsStored        prometheus.Gauge
	BuildsBytes         prometheus.Gauge
	BuildsPastRetention prometheus.Gauge

	// Catalog metrics
	CatalogCacheHits    *prometheus.CounterVec
	CatalogCacheMisses  *prometheus.CounterVec
	CatalogLookupErrors *prometheus.CounterVec

	// Mirror metrics
	ArtifactUploadsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kll_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kll_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 90},
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kll_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "route"},
		),

		GenerateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kll_generate_total",
				Help: "Generate requests by outcome",
			},
			[]string{"outcome"},
		),
		GenerateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kll_generate_duration_seconds",
				Help:    "End to end build generation time",
				Buckets: []float64{.05, .1, .5, 1, 5, 10, 30, 60, 90},
			},
		),

		CompileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kll_compile_total",
				Help: "Native compilations by compiler and resulting artifact kind",
			},
			[]string{"compiler", "artifact_kind"},
		),
		CompileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kll_compile_duration_seconds",
				Help:    "Native compilation duration in seconds",
				Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90},
			},
			[]string{"compiler"},
		),
		CompilesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kll_compiles_in_flight",
				Help: "Native compiler processes currently running",
			},
		),

		DownloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kll_downloads_total",
				Help: "Download requests by result",
			},
			[]string{"result"},
		),
		DownloadBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kll_download_bytes_total",
				Help: "Bytes streamed to clients by artifact kind",
			},
			[]string{"artifact_kind"},
		),

		BuildsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kll_builds_stored",
				Help: "Build directories present under the build root",
			},
		),
		BuildsBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kll_builds_bytes",
				Help: "Total size of the build root in bytes",
			},
		),
		BuildsPastRetention: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kll_builds_past_retention",
				Help: "Build directories older than the configured retention",
			},
		),

		CatalogCacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kll_catalog_cache_hits_total",
				Help: "Catalog item cache hits",
			},
			[]string{"layer"},
		),
		CatalogCacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kll_catalog_cache_misses_total",
				Help: "Catalog item cache misses",
			},
			[]string{"layer"},
		),
		CatalogLookupErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kll_catalog_lookup_errors_total",
				Help: "Catalog backend errors",
			},
			[]string{"backend"},
		),

		ArtifactUploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kll_artifact_uploads_total",
				Help: "Build mirror uploads by status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.GenerateTotal,
		m.GenerateDuration,
		m.CompileTotal,
		m.CompileDuration,
		m.CompilesInFlight,
		m.DownloadsTotal,
		m.DownloadBytes,
		m.BuildsStored,
		m.BuildsBytes,
		m.BuildsPastRetention,
		m.CatalogCacheHits,
		m.CatalogCacheMisses,
		m.CatalogLookupErrors,
		m.ArtifactUploadsTotal,
	)

	return m
}

// RecordGenerate records one generate request outcome
func (m *Metrics) RecordGenerate(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerateTotal.WithLabelValues(outcome).Inc()
	m.GenerateDuration.Observe(d.Seconds())
}

// RecordCompile records one compiler run
func (m *Metrics) RecordCompile(compiler, artifactKind string, d time.Duration) {
	if m == nil {
		return
	}
	m.CompileTotal.WithLabelValues(compiler, artifactKind).Inc()
	m.CompileDuration.WithLabelValues(compiler).Observe(d.Seconds())
}

// CompileStarted increments the in-flight gauge and returns its decrement
func (m *Metrics) CompileStarted() func() {
	if m == nil {
		return func() {}
	}
	m.CompilesInFlight.Inc()
	return m.CompilesInFlight.Dec
}

// RecordDownload records a download result and the bytes streamed
func (m *Metrics) RecordDownload(result string, bytes int64) {
	if m == nil {
		return
	}
	m.DownloadsTotal.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.DownloadBytes.WithLabelValues(result).Add(float64(bytes))
	}
}

// SetBuildUsage publishes the latest build root scan
func (m *Metrics) SetBuildUsage(count int, bytes int64, pastRetention int) {
	if m == nil {
		return
	}
	m.BuildsStored.Set(float64(count))
	m.BuildsBytes.Set(float64(bytes))
	m.BuildsPastRetention.Set(float64(pastRetention))
}

// RecordCacheLookup records hits and misses for a catalog cache layer
func (m *Metrics) RecordCacheLookup(layer string, hits, misses int) {
	if m == nil {
		return
	}
	if hits > 0 {
		m.CatalogCacheHits.WithLabelValues(layer).Add(float64(hits))
	}
	if misses > 0 {
		m.CatalogCacheMisses.WithLabelValues(layer).Add(float64(misses))
	}
}

// RecordCatalogError records a backend failure
func (m *Metrics) RecordCatalogError(backend string) {
	if m == nil {
		return
	}
	m.CatalogLookupErrors.WithLabelValues(backend).Inc()
}

// RecordUpload records a mirror upload result
func (m *Metrics) RecordUpload(status string) {
	if m == nil {
		return
	}
	m.ArtifactUploadsTotal.WithLabelValues(status).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// routeLabel uses the mux route template so build ids do not become label values
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Install it with Router.Use so the matched route is visible.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(serveMux *http.ServeMux, registry *prometheus.Registry) {
	serveMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
