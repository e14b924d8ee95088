// Package api exposes the installer service over HTTP.
//
// # Endpoints
//
//	POST /api/generate              {"appIds": ["vscode", "7zip"]}
//	GET  /api/downloads/{buildId}   native executable or zip archive
//
// A successful generate returns the selected catalog items in request order,
// the rendered script, the build id and its download URL:
//
//	{
//	  "selectedApps": [...],
//	  "generatedScript": "...",
//	  "downloadUrl": "/api/downloads/3f0c...",
//	  "generatedAt": "2026-01-02T03:04:05Z",
//	  "buildId": "3f0c...",
//	  "artifactKind": "native_executable"
//	}
//
// # Errors
//
// Every error body is {"error", "code", "missing"}.
//
//	400  EMPTY_SELECTION, TOO_MANY, INVALID_FORMAT, APPS_NOT_FOUND, BAD_BUILD_ID
//	404  BUILD_NOT_FOUND
//	413  PAYLOAD_TOO_LARGE
//	500  INTERNAL, ARCHIVE_ERROR
//	503  CATALOG_UNAVAILABLE
//
// A download that fails after the first byte was sent aborts the connection
// instead of writing an error body into the file.
//
// # Middleware
//
// Server.Handler wraps the router with panic recovery, request ids, logrus
// access logging, CORS, a request body limit and OpenTelemetry spans. Route
// level Prometheus metrics are installed on the router itself so the matched
// route template is used as the label.
package api
