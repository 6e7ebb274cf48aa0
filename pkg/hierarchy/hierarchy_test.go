package hierarchy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metadata/memory"
	"github.com/marmos91/dittodrive/pkg/physical"
	"github.com/marmos91/dittodrive/pkg/physical/fs"
)

// newTestService builds an engine over an in-memory metadata store and a
// filesystem physical store rooted in a per-test temp dir. The metadata
// store and the root are returned for direct inspection.
func newTestService(t *testing.T) (*Service, metadata.Store, string) {
	t.Helper()

	root := t.TempDir()
	phys, err := fs.NewFSStore(t.Context(), root)
	require.NoError(t, err)

	meta := memory.NewMemoryStore()
	svc := NewService(meta, phys, zap.NewNop())

	t.Cleanup(func() {
		_ = meta.Close()
		_ = phys.Close()
	})

	return svc, meta, root
}

// newTestServiceWith is newTestService with a caller-supplied metadata store,
// used by the fault-injection tests.
func newTestServiceWith(t *testing.T, meta metadata.Store) (*Service, string) {
	t.Helper()

	root := t.TempDir()
	phys, err := fs.NewFSStore(t.Context(), root)
	require.NoError(t, err)

	svc := NewService(meta, phys, zap.NewNop())

	t.Cleanup(func() {
		_ = meta.Close()
		_ = phys.Close()
	})

	return svc, root
}

// stageBytes stages content and returns the staged id.
func stageBytes(t *testing.T, svc *Service, content string) physical.StagedID {
	t.Helper()

	staged, err := svc.Stage(t.Context(), strings.NewReader(content))
	require.NoError(t, err)
	return staged
}

// countNodes returns the number of records the store holds for owner.
func countNodes(t *testing.T, meta metadata.Store, owner metadata.OwnerID) int {
	t.Helper()

	nodes, err := meta.ListByOwner(t.Context(), owner)
	require.NoError(t, err)
	return len(nodes)
}

// createFailStore wraps a metadata store and fails the next n Create calls
// with an injected error.
type createFailStore struct {
	metadata.Store

	mu    sync.Mutex
	fails int
}

var errInjected = errors.New("injected create failure")

func (s *createFailStore) arm(n int) {
	s.mu.Lock()
	s.fails = n
	s.mu.Unlock()
}

func (s *createFailStore) Create(ctx context.Context, node *metadata.FileNode) (*metadata.FileNode, error) {
	s.mu.Lock()
	if s.fails > 0 {
		s.fails--
		s.mu.Unlock()
		return nil, errInjected
	}
	s.mu.Unlock()
	return s.Store.Create(ctx, node)
}
