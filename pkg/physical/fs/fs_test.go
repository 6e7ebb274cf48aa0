package fs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/dittodrive/pkg/physical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*FSStore, string) {
	root := t.TempDir()
	store, err := NewFSStore(t.Context(), root)
	require.NoError(t, err)
	return store, root
}

func TestStageAndMove(t *testing.T) {
	store, root := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.EnsureDir(ctx, "alice/docs"))

	staged, err := store.Stage(ctx, strings.NewReader("hello"))
	require.NoError(t, err)

	require.NoError(t, store.Move(ctx, staged, "alice/docs", "greeting.txt"))

	// The blob landed and the staging copy is gone.
	data, err := os.ReadFile(filepath.Join(root, "alice", "docs", "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = os.Stat(filepath.Join(root, stagingDir, string(staged)))
	assert.True(t, os.IsNotExist(err))
}

func TestMove_DestinationExists(t *testing.T) {
	store, _ := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.EnsureDir(ctx, "alice"))

	first, err := store.Stage(ctx, strings.NewReader("one"))
	require.NoError(t, err)
	require.NoError(t, store.Move(ctx, first, "alice", "file.txt"))

	second, err := store.Stage(ctx, strings.NewReader("two"))
	require.NoError(t, err)

	err = store.Move(ctx, second, "alice", "file.txt")
	require.ErrorIs(t, err, physical.ErrDestinationExists)

	// The original content is untouched.
	r, err := store.Open(ctx, "alice", "file.txt")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestOpen_RoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := t.Context()

	payload := bytes.Repeat([]byte("dittodrive"), 1024)

	require.NoError(t, store.EnsureDir(ctx, "alice/x/y"))
	staged, err := store.Stage(ctx, bytes.NewReader(payload))
	require.NoError(t, err)
	require.NoError(t, store.Move(ctx, staged, "alice/x/y", "blob.bin"))

	r, err := store.Open(ctx, "alice/x/y", "blob.bin")
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestOpen_NotFound(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Open(t.Context(), "alice", "missing.txt")
	require.ErrorIs(t, err, physical.ErrBlobNotFound)
}

func TestEnsureDir_Idempotent(t *testing.T) {
	store, root := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.EnsureDir(ctx, "alice/a/b"))
	require.NoError(t, store.EnsureDir(ctx, "alice/a/b"))

	info, err := os.Stat(filepath.Join(root, "alice", "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRemoveFile_ToleratesAbsence(t *testing.T) {
	store, _ := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.EnsureDir(ctx, "alice"))
	staged, err := store.Stage(ctx, strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, store.Move(ctx, staged, "alice", "f"))

	require.NoError(t, store.RemoveFile(ctx, "alice", "f"))
	require.NoError(t, store.RemoveFile(ctx, "alice", "f"))
}

func TestRemoveTree_ToleratesAbsence(t *testing.T) {
	store, root := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.EnsureDir(ctx, "alice/deep/tree"))
	staged, err := store.Stage(ctx, strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, store.Move(ctx, staged, "alice/deep/tree", "f"))

	require.NoError(t, store.RemoveTree(ctx, "alice/deep"))
	_, err = os.Stat(filepath.Join(root, "alice", "deep"))
	assert.True(t, os.IsNotExist(err))

	// Second removal of the same subtree is a no-op.
	require.NoError(t, store.RemoveTree(ctx, "alice/deep"))
}

func TestDiscardStaged(t *testing.T) {
	store, root := newStore(t)
	ctx := t.Context()

	staged, err := store.Stage(ctx, strings.NewReader("doomed"))
	require.NoError(t, err)

	require.NoError(t, store.DiscardStaged(ctx, staged))
	_, err = os.Stat(filepath.Join(root, stagingDir, string(staged)))
	assert.True(t, os.IsNotExist(err))

	// Discarding again is tolerated.
	require.NoError(t, store.DiscardStaged(ctx, staged))
}
