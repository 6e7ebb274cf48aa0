package hierarchy

import "errors"

// ============================================================================
// Hierarchy Engine Errors
// ============================================================================

// The engine reports failures through four sentinels plus wrapped I/O errors.
// The HTTP layer maps them to responses; everything not matching a sentinel
// is a storage failure and surfaces as a generic internal error with full
// detail logged for operators.
var (
	// ErrNotFound indicates the requested node does not exist for the
	// requesting owner. Missing records, wrong-kind nodes and foreign-owner
	// nodes are all reported this way at the boundary so that probing the
	// API cannot reveal the existence of another owner's files.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates an ownership mismatch. It is an internal
	// distinction only: callers translate it to the same response shape as
	// ErrNotFound before it leaves the process.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates a sibling with the requested name already
	// exists, or a path segment that must be a folder exists as a file.
	ErrConflict = errors.New("name conflict")

	// ErrInvalidPath indicates a path or name containing a reserved segment
	// ("." or "..") or an empty name. These never correspond to stored
	// nodes and would escape the storage root if passed through.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInconsistent indicates the dual-existence invariant was observed
	// broken: a record without bytes, or bytes without a record. It is
	// surfaced for operator attention, never silently repaired.
	ErrInconsistent = errors.New("metadata and physical storage inconsistent")
)
