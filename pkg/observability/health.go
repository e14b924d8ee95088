package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Severity decides what a failing check does to the overall status
type Severity int

const (
	// Required checks make the service unhealthy when they fail
	Required Severity = iota
	// Optional checks only degrade the service
	Optional
)

// CheckFunc probes one dependency. Returning an error from Degraded reports
// the dependency as degraded instead of failed.
type CheckFunc func(ctx context.Context) error

type degradedError struct{ msg string }

func (e degradedError) Error() string { return e.msg }

// Degraded wraps msg so a check reports a degraded dependency
func Degraded(msg string) error {
	return degradedError{msg: msg}
}

type namedCheck struct {
	name     string
	severity Severity
	fn       CheckFunc
}

// HealthChecker runs the readiness checks of the build service
type HealthChecker struct {
	checks  []namedCheck
	version string
}

// HealthStatus is the readiness response body
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the result of one check
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewHealthChecker registers the standard checks: the build root is required,
// the catalog database is required when set, redis is optional when set.
func NewHealthChecker(db *sql.DB, rdb *redis.Client, buildRoot string) *HealthChecker {
	h := &HealthChecker{version: "1.0.0"}
	if buildRoot != "" {
		h.AddCheck("build_root", Required, BuildRootCheck(buildRoot))
	}
	if db != nil {
		h.AddCheck("catalog_database", Required, DatabaseCheck(db))
	}
	if rdb != nil {
		h.AddCheck("redis", Optional, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	return h
}

// AddCheck registers another named check
func (h *HealthChecker) AddCheck(name string, severity Severity, fn CheckFunc) *HealthChecker {
	h.checks = append(h.checks, namedCheck{name: name, severity: severity, fn: fn})
	return h
}

// WithVersion sets the version reported in the status body
func (h *HealthChecker) WithVersion(version string) *HealthChecker {
	h.version = version
	return h
}

// Check runs every registered check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(h.checks)),
	}

	for _, c := range h.checks {
		dep := runCheck(ctx, c.fn)
		status.Dependencies[c.name] = dep

		switch {
		case dep.Status == StatusHealthy:
		case dep.Status == StatusUnhealthy && c.severity == Required:
			status.Status = StatusUnhealthy
		case status.Status != StatusUnhealthy:
			status.Status = StatusDegraded
		}
	}
	return status
}

func runCheck(ctx context.Context, fn CheckFunc) DependencyStatus {
	start := time.Now()
	err := fn(ctx)
	dep := DependencyStatus{
		Status:    StatusHealthy,
		Latency:   time.Since(start),
		Timestamp: start,
	}
	if err == nil {
		return dep
	}

	dep.Message = err.Error()
	var degraded degradedError
	if errors.As(err, &degraded) {
		dep.Status = StatusDegraded
	} else {
		dep.Status = StatusUnhealthy
	}
	return dep
}

// BuildRootCheck verifies the build root is a directory that accepts new files
func BuildRootCheck(root string) CheckFunc {
	return func(context.Context) error {
		info, err := os.Stat(root)
		if err != nil {
			return errors.New("build root unavailable")
		}
		if !info.IsDir() {
			return errors.New("build root is not a directory")
		}

		probe, err := os.CreateTemp(root, ".health-*")
		if err != nil {
			return errors.New("build root is not writable")
		}
		name := probe.Name()
		probe.Close()
		os.Remove(name)
		return nil
	}
}

// DatabaseCheck pings db, runs a trivial query and flags an exhausted pool
func DatabaseCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}

		var one int
		if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
			return fmt.Errorf("query failed: %v", err)
		}

		stats := db.Stats()
		if stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
			return Degraded("connection pool exhausted")
		}
		return nil
	}
}

// Liveness always returns 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns 503 when a required check fails
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
