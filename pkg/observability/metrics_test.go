package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordGenerate("ok", time.Second)
	m.RecordCompile("ps2exe", "nativeExecutable", time.Second)
	m.CompileStarted()()
	m.RecordDownload("nativeExecutable", 10)
	m.SetBuildUsage(1, 2, 3)
	m.RecordCacheLookup("lru", 1, 1)
	m.RecordCatalogError("sql")
	m.RecordUpload("ok")
}

func TestMetricsRecorders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordGenerate("ok", 50*time.Millisecond)
	m.RecordGenerate("APPS_NOT_FOUND", time.Millisecond)
	if got := testutil.ToFloat64(m.GenerateTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("Expected 1 ok generate, got %v", got)
	}

	done := m.CompileStarted()
	if got := testutil.ToFloat64(m.CompilesInFlight); got != 1 {
		t.Errorf("Expected 1 compile in flight, got %v", got)
	}
	done()
	if got := testutil.ToFloat64(m.CompilesInFlight); got != 0 {
		t.Errorf("Expected 0 compiles in flight, got %v", got)
	}

	m.RecordDownload("scriptPlusLauncher", 2048)
	if got := testutil.ToFloat64(m.DownloadBytes.WithLabelValues("scriptPlusLauncher")); got != 2048 {
		t.Errorf("Expected 2048 bytes, got %v", got)
	}

	m.SetBuildUsage(3, 4096, 1)
	if got := testutil.ToFloat64(m.BuildsPastRetention); got != 1 {
		t.Errorf("Expected 1 build past retention, got %v", got)
	}

	m.RecordCacheLookup("redis", 2, 0)
	if got := testutil.ToFloat64(m.CatalogCacheHits.WithLabelValues("redis")); got != 2 {
		t.Errorf("Expected 2 redis hits, got %v", got)
	}
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/api/downloads/{buildId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/downloads/"+id, nil))
	}

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/downloads/{buildId}", "404"))
	if got != 3 {
		t.Errorf("Expected 3 requests under the route template, got %v", got)
	}
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordUpload("ok")

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	w := httptest.NewRecorder()
	serveMux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "kll_artifact_uploads_total") {
		t.Error("Expected kll_artifact_uploads_total in metrics output")
	}
}
