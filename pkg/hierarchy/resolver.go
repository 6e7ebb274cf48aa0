package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"go.uber.org/zap"
)

// CreatePath resolves slashPath under owner's root, creating every missing
// folder along the way, and returns the deepest folder node. An empty path
// resolves to the owner's root and returns nil.
//
// Idempotent: repeated calls with the same path return the same folder and
// never create duplicate siblings.
func (s *Service) CreatePath(ctx context.Context, owner metadata.OwnerID, slashPath string) (*metadata.FileNode, error) {
	unlock := s.lockOwner(owner)
	defer unlock()

	node, _, err := s.resolve(ctx, owner, slashPath, true)
	return node, err
}

// ResolvePath resolves slashPath under owner's root without creating
// anything, returning the deepest folder node (nil for the root). A missing
// segment fails with ErrNotFound.
//
// Read-only: no owner lock is taken.
func (s *Service) ResolvePath(ctx context.Context, owner metadata.OwnerID, slashPath string) (*metadata.FileNode, error) {
	node, _, err := s.resolve(ctx, owner, slashPath, false)
	return node, err
}

// resolve walks slashPath segment by segment from owner's root.
//
// For each segment it looks up a folder child of the current node. On a
// miss with createMissing set, the physical directory is created first
// (idempotently, so a directory left behind by an earlier partial attempt is
// simply adopted) and the folder record second, upholding dual existence.
//
// The record insert can lose a race against a concurrent resolution of the
// same new segment: the store's (owner, parent, name) uniqueness constraint
// rejects the duplicate with ErrNodeExists, and the loser fetches and adopts
// the winner's folder instead of erroring. This is the atomic
// create-or-fetch replacing a naive lookup-then-create.
//
// Returns the deepest resolved folder (nil when slashPath has no segments,
// meaning the owner's root) and its physical directory.
//
// Callers needing exclusion against concurrent deletes hold the owner lock;
// resolve itself does not take it.
func (s *Service) resolve(ctx context.Context, owner metadata.OwnerID, slashPath string, createMissing bool) (*metadata.FileNode, string, error) {
	var current *metadata.FileNode
	dir := ownerRoot(owner)

	for _, segment := range splitPath(slashPath) {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if err := validateName(segment); err != nil {
			return nil, "", err
		}

		next, err := s.descend(ctx, owner, current, dir, segment, createMissing)
		if err != nil {
			return nil, "", err
		}

		current = next
		dir = next.PhysicalPath
	}

	return current, dir, nil
}

// descend resolves or creates one segment under the given parent.
func (s *Service) descend(ctx context.Context, owner metadata.OwnerID, parent *metadata.FileNode, parentDir, segment string, createMissing bool) (*metadata.FileNode, error) {
	var parentID *metadata.NodeID
	if parent != nil {
		parentID = &parent.ID
	}

	existing, err := s.meta.Lookup(ctx, owner, parentID, segment)
	switch {
	case err == nil:
		return requireFolder(existing)

	case !errors.Is(err, metadata.ErrNodeNotFound):
		return nil, fmt.Errorf("failed to look up segment %q: %w", segment, err)

	case !createMissing:
		return nil, fmt.Errorf("segment %q: %w", segment, ErrNotFound)
	}

	// Directory before record: a crash here leaves an unrecorded directory
	// that the retry adopts, never a record without a directory.
	childDir := parentDir + "/" + segment
	if err := s.phys.EnsureDir(ctx, childDir); err != nil {
		return nil, fmt.Errorf("failed to create directory for segment %q: %w", segment, err)
	}

	created, err := s.meta.Create(ctx, &metadata.FileNode{
		Name:         segment,
		Kind:         metadata.KindFolder,
		Parent:       parentID,
		Owner:        owner,
		PhysicalPath: childDir,
	})
	if err == nil {
		s.log.Debug("created folder",
			zap.String("owner", string(owner)),
			zap.String("path", childDir))
		return created, nil
	}
	if !errors.Is(err, metadata.ErrNodeExists) {
		return nil, fmt.Errorf("failed to create folder record for segment %q: %w", segment, err)
	}

	// A concurrent resolution created this segment between our lookup and
	// insert. Adopt the winner.
	winner, err := s.meta.Lookup(ctx, owner, parentID, segment)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch concurrently created segment %q: %w", segment, err)
	}
	return requireFolder(winner)
}

// requireFolder rejects descending through a file node.
func requireFolder(node *metadata.FileNode) (*metadata.FileNode, error) {
	if !node.IsFolder() {
		return nil, fmt.Errorf("segment %q exists as a file: %w", node.Name, ErrConflict)
	}
	return node, nil
}
