package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// Compiler names accepted by KLL_COMPILER
const (
	CompilerPS2EXE = "ps2exe"
	CompilerStub   = "stub"
	CompilerNone   = "none"
)

// Catalog drivers accepted by KLL_CATALOG_DRIVER
const (
	CatalogFile     = "file"
	CatalogSQLite   = "sqlite3"
	CatalogPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Builds        BuildsConfig
	Compiler      CompilerConfig
	Catalog       CatalogConfig
	Artifacts     ArtifactsConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	CORSOrigins  []string
	MaxBodyBytes int64
}

// BuildsConfig holds build store settings
type BuildsConfig struct {
	Dir            string
	AssetsDir      string
	MaxApps        int
	Retention      time.Duration
	DownloadPrefix string
}

// CompilerConfig selects and configures the native compiler
type CompilerConfig struct {
	Kind           string
	PowerShellPath string
	PS2EXEScript   string
	IconPath       string
	StubPath       string
	Timeout        time.Duration
	MaxConcurrent  int
}

// CatalogConfig selects the catalog backend and its caches
type CatalogConfig struct {
	Driver    string
	DSN       string
	File      string
	CacheSize int
	CacheTTL  time.Duration
	RedisURL  string
	RedisTTL  time.Duration
}

// ArtifactsConfig configures the optional S3 build mirror
type ArtifactsConfig struct {
	S3Bucket          string
	S3Region          string
	S3Prefix          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Enabled reports whether a bucket is configured
func (a ArtifactsConfig) Enabled() bool {
	return a.S3Bucket != ""
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel
	LogFile  string

	MetricsEnabled bool
	UsageSchedule  string

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Builds:        loadBuildsConfig(),
		Compiler:      loadCompilerConfig(),
		Catalog:       loadCatalogConfig(),
		Artifacts:     loadArtifactsConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("KLL_HOST", "0.0.0.0"),
		Port:            getEnv("KLL_PORT", "3001"),
		ReadTimeout:     getEnvDuration("KLL_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("KLL_WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:     getEnvDuration("KLL_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("KLL_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("KLL_HEALTH_PORT", "9090"),
		CORSOrigins:     getEnvList("KLL_CORS_ORIGINS", []string{"http://localhost:5173"}),
		MaxBodyBytes:    getEnvInt64("KLL_MAX_BODY_BYTES", 64<<10),
	}
}

func loadBuildsConfig() BuildsConfig {
	return BuildsConfig{
		Dir:            getEnv("KLL_BUILDS_DIR", "./builds"),
		AssetsDir:      getEnv("KLL_ASSETS_DIR", "./assets"),
		MaxApps:        getEnvInt("KLL_MAX_APPS_PER_BUILD", 50),
		Retention:      time.Duration(getEnvInt("KLL_BUILD_RETENTION_HOURS", 24)) * time.Hour,
		DownloadPrefix: getEnv("KLL_DOWNLOAD_PREFIX", "/api/downloads"),
	}
}

func loadCompilerConfig() CompilerConfig {
	assets := getEnv("KLL_ASSETS_DIR", "./assets")
	return CompilerConfig{
		Kind:           strings.ToLower(getEnv("KLL_COMPILER", CompilerPS2EXE)),
		PowerShellPath: getEnv("KLL_POWERSHELL_PATH", "powershell"),
		PS2EXEScript:   getEnv("KLL_PS2EXE_SCRIPT", assets+"/ps2exe.ps1"),
		IconPath:       getEnv("KLL_INSTALLER_ICON", assets+"/installer.ico"),
		StubPath:       getEnv("KLL_STUB_PATH", assets+"/installer-stub.exe"),
		Timeout:        getEnvDuration("KLL_COMPILE_TIMEOUT", 60*time.Second),
		MaxConcurrent:  getEnvInt("KLL_MAX_CONCURRENT_COMPILES", 2),
	}
}

func loadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Driver:    strings.ToLower(getEnv("KLL_CATALOG_DRIVER", CatalogFile)),
		DSN:       getEnv("KLL_CATALOG_DSN", ""),
		File:      getEnv("KLL_CATALOG_FILE", "catalog.yaml"),
		CacheSize: getEnvInt("KLL_CATALOG_CACHE_SIZE", 1024),
		CacheTTL:  getEnvDuration("KLL_CATALOG_CACHE_TTL", 5*time.Minute),
		RedisURL:  getEnv("KLL_REDIS_URL", ""),
		RedisTTL:  getEnvDuration("KLL_REDIS_TTL", 15*time.Minute),
	}
}

func loadArtifactsConfig() ArtifactsConfig {
	return ArtifactsConfig{
		S3Bucket:          getEnv("KLL_S3_BUCKET", ""),
		S3Region:          getEnv("KLL_S3_REGION", ""),
		S3Prefix:          getEnv("KLL_S3_PREFIX", "builds"),
		S3Endpoint:        getEnv("KLL_S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("KLL_S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("KLL_S3_SECRET_ACCESS_KEY", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("KLL_LOG_LEVEL", "info")),
		LogFile:            getEnv("KLL_LOG_FILE", ""),
		MetricsEnabled:     getEnvBool("KLL_METRICS_ENABLED", true),
		UsageSchedule:      getEnv("KLL_USAGE_SCHEDULE", "@every 1m"),
		OTelEnabled:        getEnvBool("KLL_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("KLL_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("KLL_OTEL_SERVICE_NAME", "kll-server"),
		OTelServiceVersion: getEnv("KLL_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("KLL_OTEL_INSECURE", true),
	}
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.Port == "" {
		result = multierror.Append(result, fmt.Errorf("server port is required"))
	}
	if c.Server.HealthPort == "" {
		result = multierror.Append(result, fmt.Errorf("health port is required"))
	}
	if c.Server.Port != "" && c.Server.Port == c.Server.HealthPort {
		result = multierror.Append(result, fmt.Errorf("server port and health port must be different"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		result = multierror.Append(result, fmt.Errorf("max body bytes must be positive"))
	}

	if c.Builds.Dir == "" {
		result = multierror.Append(result, fmt.Errorf("builds directory is required"))
	}
	if c.Builds.MaxApps <= 0 {
		result = multierror.Append(result, fmt.Errorf("max apps per build must be positive"))
	}
	if !strings.HasPrefix(c.Builds.DownloadPrefix, "/") {
		result = multierror.Append(result, fmt.Errorf("download prefix must start with /"))
	}

	switch c.Compiler.Kind {
	case CompilerPS2EXE, CompilerStub, CompilerNone:
	default:
		result = multierror.Append(result, fmt.Errorf("invalid compiler: %s (must be ps2exe, stub, or none)", c.Compiler.Kind))
	}
	if c.Compiler.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("compile timeout must be positive"))
	}
	if c.Compiler.MaxConcurrent <= 0 {
		result = multierror.Append(result, fmt.Errorf("max concurrent compiles must be positive"))
	}

	switch c.Catalog.Driver {
	case CatalogFile:
		if c.Catalog.File == "" {
			result = multierror.Append(result, fmt.Errorf("catalog file is required for the file catalog"))
		}
	case CatalogSQLite, CatalogPostgres:
		if c.Catalog.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("catalog DSN is required for %s", c.Catalog.Driver))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("invalid catalog driver: %s (must be file, sqlite3, or postgres)", c.Catalog.Driver))
	}

	if c.Artifacts.S3AccessKeyID != "" && c.Artifacts.S3SecretAccessKey == "" {
		result = multierror.Append(result, fmt.Errorf("S3 secret access key is required with an access key id"))
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			result = multierror.Append(result, fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			result = multierror.Append(result, fmt.Errorf("OpenTelemetry service name is required when OTel is enabled"))
		}
	}

	return result.ErrorOrNil()
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
