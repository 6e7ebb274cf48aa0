package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/physical"
	"go.uber.org/zap"
)

// List returns every node owned by owner, flat and unordered beyond store
// iteration order.
func (s *Service) List(ctx context.Context, owner metadata.OwnerID) ([]*metadata.FileNode, error) {
	nodes, err := s.meta.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return nodes, nil
}

// OpenFile resolves a file node owned by owner and returns it with a reader
// over its bytes. The caller closes the reader.
//
// A missing node, a folder node and a foreign owner's node all fail with the
// same ErrNotFound so the response shape never reveals whether another
// owner's node exists.
func (s *Service) OpenFile(ctx context.Context, owner metadata.OwnerID, id metadata.NodeID) (*metadata.FileNode, io.ReadCloser, error) {
	node, err := s.meta.Get(ctx, id)
	if errors.Is(err, metadata.ErrNodeNotFound) {
		return nil, nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load node %s: %w", id, err)
	}
	if node.Owner != owner || node.IsFolder() {
		return nil, nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}

	r, err := s.phys.Open(ctx, node.PhysicalPath, node.Name)
	if errors.Is(err, physical.ErrBlobNotFound) {
		// A record pointing at nothing: the invariant is broken. Surface
		// it for operators instead of pretending the file never existed.
		s.log.Error("file record has no bytes",
			zap.String("owner", string(owner)),
			zap.String("id", string(id)),
			zap.String("path", node.PhysicalPath+"/"+node.Name))
		return nil, nil, fmt.Errorf("record %s has no bytes: %w", id, ErrInconsistent)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open bytes for %s: %w", id, err)
	}

	return node, r, nil
}
