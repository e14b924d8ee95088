package validation

import "fmt"

// Kind classifies an identifier validation failure
type Kind string

const (
	KindEmptySelection Kind = "EMPTY_SELECTION"
	KindTooMany        Kind = "TOO_MANY"
	KindInvalidFormat  Kind = "INVALID_FORMAT"
)

// Error is returned by ValidateAppIDs
type Error struct {
	Kind Kind
	// Max is set for KindTooMany
	Max int
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindEmptySelection:
		return "please select at least one app"
	case KindTooMany:
		return fmt.Sprintf("at most %d apps can be selected per build", e.Max)
	case KindInvalidFormat:
		return "invalid app id format"
	default:
		return string(e.Kind)
	}
}

// Is reports whether target is a validation error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
