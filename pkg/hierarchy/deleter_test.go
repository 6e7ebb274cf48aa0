package hierarchy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/metadata"
)

// buildTree lays out a small tree for the deletion tests and returns the
// root folder node:
//
//	projects/
//	  readme.txt
//	  alpha/
//	    main.go  notes.txt
//	  beta/
//	    main.go  notes.txt
func buildTree(t *testing.T, svc *Service, owner metadata.OwnerID) *metadata.FileNode {
	t.Helper()

	root, err := svc.CreatePath(t.Context(), owner, "projects")
	require.NoError(t, err)

	place := func(name, folder string) {
		staged := stageBytes(t, svc, "content of "+name)
		_, err := svc.Place(t.Context(), owner, staged, name, folder)
		require.NoError(t, err)
	}

	place("readme.txt", "projects")
	place("main.go", "projects/alpha")
	place("notes.txt", "projects/alpha")
	place("main.go", "projects/beta")
	place("notes.txt", "projects/beta")

	return root
}

func TestDeleteSubtree_RemovesEverything(t *testing.T) {
	svc, meta, root := newTestService(t)
	owner := metadata.OwnerID("alice")

	node := buildTree(t, svc, owner)
	require.Equal(t, 8, countNodes(t, meta, owner))

	removed, err := svc.DeleteSubtree(t.Context(), owner, node.ID)
	require.NoError(t, err)

	// 3 folders and 5 files.
	assert.Equal(t, 8, removed)
	assert.Equal(t, 0, countNodes(t, meta, owner))

	_, err = os.Stat(filepath.Join(root, "alice", "projects"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDeleteSubtree_SingleFile(t *testing.T) {
	svc, meta, root := newTestService(t)
	owner := metadata.OwnerID("alice")

	staged := stageBytes(t, svc, "data")
	node, err := svc.Place(t.Context(), owner, staged, "report.txt", "docs")
	require.NoError(t, err)

	removed, err := svc.DeleteSubtree(t.Context(), owner, node.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// The containing folder survives.
	assert.Equal(t, 1, countNodes(t, meta, owner))
	_, err = os.Stat(filepath.Join(root, "alice", "docs"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "alice", "docs", "report.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDeleteSubtree_Idempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := metadata.OwnerID("alice")

	node := buildTree(t, svc, owner)

	removed, err := svc.DeleteSubtree(t.Context(), owner, node.ID)
	require.NoError(t, err)
	require.Equal(t, 8, removed)

	removed, err = svc.DeleteSubtree(t.Context(), owner, node.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "repeating a completed delete is a no-op")
}

func TestDeleteSubtree_UnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)

	removed, err := svc.DeleteSubtree(t.Context(), "alice", "no-such-node")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestDeleteSubtree_ForeignOwner(t *testing.T) {
	svc, meta, _ := newTestService(t)

	node := buildTree(t, svc, "alice")

	removed, err := svc.DeleteSubtree(t.Context(), "bob", node.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, removed)

	// Alice's tree is untouched.
	assert.Equal(t, 8, countNodes(t, meta, "alice"))
}

func TestDeleteSubtree_Cancelled(t *testing.T) {
	svc, meta, _ := newTestService(t)
	owner := metadata.OwnerID("alice")

	node := buildTree(t, svc, owner)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := svc.DeleteSubtree(ctx, owner, node.ID)
	assert.ErrorIs(t, err, context.Canceled)

	// Whatever was removed before the cancellation, a fresh invocation
	// clears the rest.
	_, err = svc.DeleteSubtree(t.Context(), owner, node.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, countNodes(t, meta, owner))
}
