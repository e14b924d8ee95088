// Package httputil provides HTTP utilities for standardized request/response handling.
//
// Errors are always JSON:
//
//	{"error": "unknown app ids", "code": "APPS_NOT_FOUND", "missing": ["foo"]}
//
// Handlers write them with WriteErrorCode or WriteErrorResponse. WriteInternalError
// never exposes the cause.
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(64<<10),
//	)(router)
//
// RecoveryMiddleware re-panics with http.ErrAbortHandler so a handler can drop a
// connection after the response has started.
package httputil
