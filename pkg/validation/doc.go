// Package validation checks client-supplied identifiers before any I/O happens.
//
// # Overview
//
// Two kinds of identifiers cross the HTTP boundary: catalog application ids in a
// generate request, and build ids in a download path. Both are validated here
// with pure functions so callers can reject bad input before touching the
// catalog or the filesystem.
//
// # Application IDs
//
//	ids, err := validation.ValidateAppIDs(raw, 50)
//	var verr *validation.Error
//	if errors.As(err, &verr) {
//		switch verr.Kind {
//		case validation.KindEmptySelection, validation.KindTooMany, validation.KindInvalidFormat:
//			// 400
//		}
//	}
//
// An id is 1 to 100 characters drawn from [A-Za-z0-9_-].
//
// # Build IDs
//
//	if !validation.IsValidBuildID(id) {
//		// 400, never join id into a path
//	}
//
// Only the canonical lowercase form of a version 4 UUID is accepted, so every
// token that passes is also safe to use as a single path segment.
//
// # Related Packages
//
//   - pkg/generate: Runs ValidateAppIDs first in the pipeline
//   - pkg/builds: Calls IsValidBuildID before resolving a build directory
package validation
