// Package config loads server configuration from KLL_* environment variables.
//
// Every setting has a default, so an empty environment starts a local server
// that reads catalog.yaml and writes builds under ./builds.
//
// Server settings:
//
//	KLL_HOST="0.0.0.0"
//	KLL_PORT="3001"
//	KLL_HEALTH_PORT="9090"
//	KLL_CORS_ORIGINS="http://localhost:5173"
//
// Build and compiler settings:
//
//	KLL_BUILDS_DIR="./builds"
//	KLL_MAX_APPS_PER_BUILD="50"
//	KLL_COMPILER="ps2exe"  # ps2exe, stub, none
//	KLL_COMPILE_TIMEOUT="60s"
//	KLL_MAX_CONCURRENT_COMPILES="2"
//
// Catalog settings:
//
//	KLL_CATALOG_DRIVER="file"  # file, sqlite3, postgres
//	KLL_CATALOG_DSN="postgres://localhost/kll?sslmode=disable"
//	KLL_REDIS_URL="redis://localhost:6379/0"
//
// Build mirror (disabled unless a bucket is set):
//
//	KLL_S3_BUCKET="kll-builds"
//	KLL_S3_ENDPOINT="http://minio:9000"
//
// Observability settings:
//
//	KLL_LOG_LEVEL="info"
//	KLL_LOG_FILE="/var/log/kll/server.log"
//	KLL_OTEL_ENABLED="true"
//	KLL_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Validate reports all problems at once as a *multierror.Error.
package config
