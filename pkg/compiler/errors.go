package compiler

import "errors"

var (
	// ErrCompilerUnavailable is returned when a compiler cannot run on this host
	ErrCompilerUnavailable = errors.New("native compiler unavailable")

	// ErrCompileTimeout is returned when compilation exceeds its timeout
	ErrCompileTimeout = errors.New("native compile timed out")

	// ErrCompileFailed is returned when the compiler exits with an error
	ErrCompileFailed = errors.New("native compile failed")

	// ErrNoOutput is returned when the compiler reported success without producing an executable
	ErrNoOutput = errors.New("native compiler produced no output")

	// ErrScriptNotRemoved is returned when the script next to a compiled executable could not be deleted
	ErrScriptNotRemoved = errors.New("failed to remove compiled script")
)
