package artifacts

import "errors"

var (
	// ErrNotConfigured is returned when no bucket is set
	ErrNotConfigured = errors.New("artifact mirror not configured")

	// ErrUploadFailed is returned when an object upload fails
	ErrUploadFailed = errors.New("failed to upload artifact")
)
