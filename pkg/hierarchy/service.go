// Package hierarchy implements the consistency engine keeping the metadata
// tree and physical storage in lockstep.
//
// The engine has three mutating operations (path resolution with lazy
// folder creation, upload placement, and recursive subtree deletion) plus
// read-only listing and download access. Every mutation orders its store
// calls so that a crash between the two stores leaves the tree in a state
// the engine can detect and re-converge from:
//
//   - Going down (creation): physical directory first, metadata record
//     second. A crash in between leaves a directory with no record, which a
//     retried resolve adopts via the idempotent EnsureDir.
//   - Going up (deletion): physical bytes first, metadata record second. A
//     crash in between leaves a dangling record pointing at nothing, which a
//     retried delete tolerates and clears.
//
// The reverse orderings would instead leave orphaned bytes with no record,
// invisible to the engine, so they are never used.
//
// Concurrency:
// Sibling creation races are resolved by the metadata store's uniqueness
// constraint (losers adopt the winner, see Resolve). Coarser conflicts, such
// as an upload racing a delete of its target folder, are excluded by a
// per-owner mutex: all mutating operations for one owner serialize, while
// operations of different owners and all reads proceed concurrently.
package hierarchy

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/physical"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// Service is the hierarchy engine. Construct with NewService; the zero value
// is not usable.
type Service struct {
	meta metadata.Store
	phys physical.Store
	log  *zap.Logger

	// ownerLocks serializes mutating operations per owner. Entries are
	// never removed; the set of active owners is small and bounded by the
	// user registry.
	ownerLocks *xsync.Map[metadata.OwnerID, *sync.Mutex]
}

// NewService creates a hierarchy engine over the given stores.
func NewService(meta metadata.Store, phys physical.Store, log *zap.Logger) *Service {
	return &Service{
		meta:       meta,
		phys:       phys,
		log:        log,
		ownerLocks: xsync.NewMap[metadata.OwnerID, *sync.Mutex](),
	}
}

// lockOwner acquires the per-owner mutex and returns the release function.
func (s *Service) lockOwner(owner metadata.OwnerID) func() {
	mu, _ := s.ownerLocks.LoadOrStore(owner, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

// Stage copies r into the physical store's staging area ahead of a Place
// call. Staging happens outside the owner lock so slow uploads do not block
// the owner's other mutations.
func (s *Service) Stage(ctx context.Context, r io.Reader) (physical.StagedID, error) {
	return s.phys.Stage(ctx, r)
}

// DiscardStaged drops a staged blob that will not be placed.
func (s *Service) DiscardStaged(ctx context.Context, staged physical.StagedID) error {
	return s.phys.DiscardStaged(ctx, staged)
}

// ownerRoot returns the physical directory of an owner's storage root. Each
// owner gets one directory named by their id under the deployment root, and
// folder directories below it mirror the logical tree by segment name.
func ownerRoot(owner metadata.OwnerID) string {
	return string(owner)
}

// splitPath splits a logical slash path into segments, dropping the empty
// segments produced by leading, trailing or doubled slashes.
func splitPath(slashPath string) []string {
	parts := strings.Split(slashPath, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// validateName rejects names that cannot be tree nodes. "." and ".." would
// escape the storage root when mapped onto a filesystem path, a separator
// would smuggle extra path components through a single name, and NUL bytes
// are not valid in file names on any supported backend.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("segment %q: %w", name, ErrInvalidPath)
	}
	return nil
}
