package builds

import "errors"

var (
	// ErrInvalidID is returned for a build id that is not a canonical v4 UUID
	ErrInvalidID = errors.New("invalid build id")

	// ErrNotFound is returned when no build directory exists for a valid id
	ErrNotFound = errors.New("build not found")

	// ErrPackagingFailed is returned when neither a native executable nor a launcher could be written
	ErrPackagingFailed = errors.New("failed to package build")
)
