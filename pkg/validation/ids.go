package validation

import (
	"regexp"

	"github.com/google/uuid"
)

const (
	// DefaultMaxAppIDs is the selection limit used when none is configured
	DefaultMaxAppIDs = 50

	// MaxAppIDLength is the longest accepted application id
	MaxAppIDLength = 100

	buildIDLength = 36
)

var appIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidAppID reports whether id is 1-100 characters of [A-Za-z0-9_-]
func IsValidAppID(id string) bool {
	if len(id) == 0 || len(id) > MaxAppIDLength {
		return false
	}
	return appIDPattern.MatchString(id)
}

// ValidateAppIDs checks a raw selection and returns it unchanged on success.
// Checks run in order: empty, count, then per-id format.
func ValidateAppIDs(ids []string, max int) ([]string, error) {
	if max <= 0 {
		max = DefaultMaxAppIDs
	}
	if len(ids) == 0 {
		return nil, &Error{Kind: KindEmptySelection}
	}
	if len(ids) > max {
		return nil, &Error{Kind: KindTooMany, Max: max}
	}
	for _, id := range ids {
		if !IsValidAppID(id) {
			return nil, &Error{Kind: KindInvalidFormat}
		}
	}
	return ids, nil
}

// IsValidBuildID reports whether id is a canonical lowercase version 4 UUID.
// Braced, URN and uppercase spellings are rejected.
func IsValidBuildID(id string) bool {
	if len(id) != buildIDLength {
		return false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	if parsed.Version() != 4 || parsed.Variant() != uuid.RFC4122 {
		return false
	}
	return parsed.String() == id
}
