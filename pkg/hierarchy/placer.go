package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/physical"
	"go.uber.org/zap"
)

// Place lands a staged blob as a file named name under folderPath, creating
// missing folders along the way, and returns the created file node.
//
// Failure Ordering:
// The physical move happens before the metadata insert, so the only
// interesting failure is an insert failing after the move succeeded. Leaving
// the moved blob in place would orphan bytes the engine can no longer see,
// so Place rolls the move back by deleting the blob; if even the rollback
// fails, the broken dual-existence invariant is reported as ErrInconsistent
// with full detail logged, never swallowed.
//
// A sibling named name already existing, whether file or folder, fails
// with ErrConflict before anything is moved. Uploads never overwrite.
func (s *Service) Place(ctx context.Context, owner metadata.OwnerID, staged physical.StagedID, name, folderPath string) (*metadata.FileNode, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	unlock := s.lockOwner(owner)
	defer unlock()

	parent, dir, err := s.resolve(ctx, owner, folderPath, true)
	if err != nil {
		return nil, err
	}

	var parentID *metadata.NodeID
	if parent != nil {
		parentID = &parent.ID
	} else {
		// Root-level upload: resolve created nothing, so the owner's root
		// directory may not exist yet.
		if err := s.phys.EnsureDir(ctx, dir); err != nil {
			return nil, fmt.Errorf("failed to create owner root: %w", err)
		}
	}

	// Conflict check before the move. The owner lock makes this reliable:
	// no competing mutation can insert a sibling between here and our own
	// insert below.
	_, err = s.meta.Lookup(ctx, owner, parentID, name)
	if err == nil {
		return nil, fmt.Errorf("%q already exists in %s: %w", name, dir, ErrConflict)
	}
	if !errors.Is(err, metadata.ErrNodeNotFound) {
		return nil, fmt.Errorf("failed to check for sibling %q: %w", name, err)
	}

	if err := s.phys.Move(ctx, staged, dir, name); err != nil {
		if errors.Is(err, physical.ErrDestinationExists) {
			// Bytes with no record: the invariant is already broken on
			// disk. Report it instead of overwriting evidence.
			s.log.Error("unrecorded blob at upload destination",
				zap.String("owner", string(owner)),
				zap.String("dir", dir),
				zap.String("name", name))
			return nil, fmt.Errorf("unrecorded blob at %s/%s: %w", dir, name, ErrInconsistent)
		}
		return nil, fmt.Errorf("failed to move upload into place: %w", err)
	}

	created, err := s.meta.Create(ctx, &metadata.FileNode{
		Name:         name,
		Kind:         metadata.KindFile,
		Parent:       parentID,
		Owner:        owner,
		PhysicalPath: dir,
	})
	if err != nil {
		// Roll the move back so the blob is not orphaned.
		if rbErr := s.phys.RemoveFile(context.WithoutCancel(ctx), dir, name); rbErr != nil {
			s.log.Error("failed to roll back upload after metadata failure",
				zap.String("owner", string(owner)),
				zap.String("dir", dir),
				zap.String("name", name),
				zap.NamedError("create_error", err),
				zap.NamedError("rollback_error", rbErr))
			return nil, fmt.Errorf("blob at %s/%s has no record: %w", dir, name, ErrInconsistent)
		}
		if errors.Is(err, metadata.ErrNodeExists) {
			return nil, fmt.Errorf("%q already exists in %s: %w", name, dir, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	s.log.Info("placed upload",
		zap.String("owner", string(owner)),
		zap.String("id", string(created.ID)),
		zap.String("path", dir+"/"+name))

	return created, nil
}
