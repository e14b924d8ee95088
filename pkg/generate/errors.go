package generate

import (
	"fmt"
	"strings"
)

// Kind classifies a failed generate request
type Kind string

const (
	KindEmptySelection Kind = "EMPTY_SELECTION"
	KindTooMany        Kind = "TOO_MANY"
	KindInvalidFormat  Kind = "INVALID_FORMAT"
	KindAppsNotFound   Kind = "APPS_NOT_FOUND"
	KindCatalog        Kind = "CATALOG_UNAVAILABLE"
	KindInternal       Kind = "INTERNAL"
)

// Error is returned by Service.Generate
type Error struct {
	Kind    Kind
	Message string
	// Missing lists unknown ids in request order for KindAppsNotFound
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the request itself was at fault
func (e *Error) IsClientError() bool {
	switch e.Kind {
	case KindEmptySelection, KindTooMany, KindInvalidFormat, KindAppsNotFound:
		return true
	}
	return false
}

func appsNotFound(missing []string) *Error {
	return &Error{
		Kind:    KindAppsNotFound,
		Message: "apps not found: " + strings.Join(missing, ", "),
		Missing: missing,
	}
}
