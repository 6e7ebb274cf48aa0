package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"go.uber.org/zap"
)

// DeleteSubtree removes the node with the given id and every descendant from
// both stores, returning the number of metadata records removed.
//
// An absent id is a no-op success: deletes are idempotent, and re-invoking
// after a partial failure resumes from whatever records remain. A node owned
// by someone else fails with ErrUnauthorized before any mutation; ownership
// is checked once at the root, since the tree invariant guarantees all
// descendants share the root's owner.
//
// Traversal is an explicit stack rather than recursion, bounding stack depth
// on arbitrarily deep trees and giving cancellation a checkpoint between
// steps. Children are processed before their parent, and for each node the
// physical representation is removed before the metadata record: a crash
// mid-operation then leaves at worst a dangling record pointing at nothing,
// which this method detects and re-deletes on the next invocation, rather
// than orphaned bytes no record points to. Physical artifacts already gone
// are tolerated for the same reason.
func (s *Service) DeleteSubtree(ctx context.Context, owner metadata.OwnerID, id metadata.NodeID) (int, error) {
	unlock := s.lockOwner(owner)
	defer unlock()

	root, err := s.meta.Get(ctx, id)
	if errors.Is(err, metadata.ErrNodeNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load node %s: %w", id, err)
	}
	if root.Owner != owner {
		return 0, fmt.Errorf("node %s: %w", id, ErrUnauthorized)
	}

	type frame struct {
		node     *metadata.FileNode
		expanded bool
	}

	stack := []frame{{node: root}}
	removed := 0

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		top := &stack[len(stack)-1]

		// Folders are expanded once; their frame stays beneath the child
		// frames so the folder itself is only removed after every tracked
		// descendant is gone.
		if top.node.IsFolder() && !top.expanded {
			top.expanded = true
			children, err := s.meta.Children(ctx, owner, &top.node.ID)
			if err != nil {
				return removed, fmt.Errorf("failed to list children of %s: %w", top.node.ID, err)
			}
			for _, child := range children {
				stack = append(stack, frame{node: child})
			}
			continue
		}

		node := top.node
		stack = stack[:len(stack)-1]

		if err := s.removePhysical(ctx, node); err != nil {
			return removed, err
		}

		err := s.meta.Delete(ctx, node.ID)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, metadata.ErrNodeNotFound):
			// Already gone, fine.
		default:
			return removed, fmt.Errorf("failed to delete record %s: %w", node.ID, err)
		}
	}

	s.log.Info("deleted subtree",
		zap.String("owner", string(owner)),
		zap.String("root", string(id)),
		zap.Int("removed", removed))

	return removed, nil
}

// removePhysical deletes a node's on-disk representation. For a folder this
// is a recursive directory delete: all tracked descendants are gone by the
// time it runs, and anything untracked below the directory has no metadata
// anyway, so a single recursive removal is both safe and complete.
func (s *Service) removePhysical(ctx context.Context, node *metadata.FileNode) error {
	if node.IsFolder() {
		if err := s.phys.RemoveTree(ctx, node.PhysicalPath); err != nil {
			return fmt.Errorf("failed to remove directory %s: %w", node.PhysicalPath, err)
		}
		return nil
	}
	if err := s.phys.RemoveFile(ctx, node.PhysicalPath, node.Name); err != nil {
		return fmt.Errorf("failed to remove file %s/%s: %w", node.PhysicalPath, node.Name, err)
	}
	return nil
}
