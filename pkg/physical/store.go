// Package physical defines the byte-oriented storage interface backing the
// metadata tree.
//
// The physical store manages only directories and file blobs; it knows
// nothing about owners, records or the logical hierarchy. Paths handed to it
// are slash-separated and relative to a per-deployment root, mirroring the
// logical tree by segment name. pkg/hierarchy derives those paths from
// FileNode records and keeps the two stores in lockstep.
package physical

import (
	"context"
	"errors"
	"io"
)

// ============================================================================
// Standard Physical Store Errors
// ============================================================================

var (
	// ErrBlobNotFound indicates the requested file does not exist in the
	// store. Removal operations do NOT return it: absence is tolerated there
	// so that interrupted deletions can be re-run safely.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrDestinationExists indicates Move found a blob already present at
	// the destination. The staged source is left untouched.
	ErrDestinationExists = errors.New("destination already exists")
)

// StagedID identifies a blob in the store's staging area, produced by Stage
// and consumed exactly once by Move (or discarded with DiscardStaged).
type StagedID string

// Store provides directory and blob operations for one storage backend.
//
// Atomic Placement:
// Move must make the blob visible at its destination all-or-nothing: a reader
// must never observe a partially transferred blob there. Implementations use
// an atomic rename (filesystem) or an atomic server-side copy of the fully
// staged object (S3), never an incremental copy into the final location.
//
// Idempotence:
// EnsureDir succeeds when the directory already exists. RemoveFile and
// RemoveTree succeed when the target is already gone; a crash between a
// physical removal and the matching metadata removal must not make the retry
// fail.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Callers serialize
// conflicting mutations of one subtree; the store does not.
type Store interface {
	// Stage copies r into the staging area and returns a handle for a later
	// Move. Staged blobs are invisible to Open.
	Stage(ctx context.Context, r io.Reader) (StagedID, error)

	// DiscardStaged removes a staged blob that will not be placed. Absence
	// is tolerated.
	DiscardStaged(ctx context.Context, staged StagedID) error

	// EnsureDir creates the directory dir and any missing parents.
	// Idempotent.
	EnsureDir(ctx context.Context, dir string) error

	// Move atomically places a staged blob at dir/name. The staged handle is
	// consumed on success. Fails with ErrDestinationExists if a blob is
	// already present at the destination.
	Move(ctx context.Context, staged StagedID, dir, name string) error

	// Open returns a reader over the blob at dir/name, or ErrBlobNotFound.
	Open(ctx context.Context, dir, name string) (io.ReadCloser, error)

	// RemoveFile deletes the blob at dir/name. Absence is tolerated.
	RemoveFile(ctx context.Context, dir, name string) error

	// RemoveTree recursively deletes the directory dir and everything under
	// it. Absence is tolerated.
	RemoveTree(ctx context.Context, dir string) error

	// Close releases backend resources.
	Close() error
}
