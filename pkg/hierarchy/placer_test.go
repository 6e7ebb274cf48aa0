package hierarchy

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metadata/memory"
)

func TestPlace_RoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := metadata.OwnerID("alice")

	staged := stageBytes(t, svc, "quarterly numbers")
	node, err := svc.Place(t.Context(), owner, staged, "report.txt", "docs/2026")
	require.NoError(t, err)

	assert.Equal(t, "report.txt", node.Name)
	assert.Equal(t, metadata.KindFile, node.Kind)
	assert.Equal(t, "alice/docs/2026", node.PhysicalPath)
	require.NotNil(t, node.Parent)

	got, r, err := svc.OpenFile(t.Context(), owner, node.ID)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, node.ID, got.ID)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "quarterly numbers", string(data))
}

func TestPlace_AtRoot(t *testing.T) {
	svc, meta, root := newTestService(t)
	owner := metadata.OwnerID("alice")

	staged := stageBytes(t, svc, "hello")
	node, err := svc.Place(t.Context(), owner, staged, "hello.txt", "")
	require.NoError(t, err)

	assert.Nil(t, node.Parent)
	assert.Equal(t, 1, countNodes(t, meta, owner))

	_, err = os.Stat(filepath.Join(root, "alice", "hello.txt"))
	require.NoError(t, err)
}

func TestPlace_DuplicateName(t *testing.T) {
	svc, meta, _ := newTestService(t)
	owner := metadata.OwnerID("alice")

	staged := stageBytes(t, svc, "v1")
	_, err := svc.Place(t.Context(), owner, staged, "report.txt", "docs")
	require.NoError(t, err)

	staged = stageBytes(t, svc, "v2")
	_, err = svc.Place(t.Context(), owner, staged, "report.txt", "docs")
	assert.ErrorIs(t, err, ErrConflict)

	// One folder, one file: the losing upload changed nothing.
	assert.Equal(t, 2, countNodes(t, meta, owner))
}

func TestPlace_NameCollidesWithFolder(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := metadata.OwnerID("alice")

	_, err := svc.CreatePath(t.Context(), owner, "docs")
	require.NoError(t, err)

	staged := stageBytes(t, svc, "data")
	_, err = svc.Place(t.Context(), owner, staged, "docs", "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPlace_SameNameDifferentFolders(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := metadata.OwnerID("alice")

	staged := stageBytes(t, svc, "a")
	first, err := svc.Place(t.Context(), owner, staged, "notes.txt", "docs")
	require.NoError(t, err)

	staged = stageBytes(t, svc, "b")
	second, err := svc.Place(t.Context(), owner, staged, "notes.txt", "archive")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestPlace_InvalidName(t *testing.T) {
	svc, _, _ := newTestService(t)

	staged := stageBytes(t, svc, "data")
	for _, name := range []string{"", ".", "..", "a/b", "/etc", "nul\x00byte"} {
		_, err := svc.Place(t.Context(), "alice", staged, name, "docs")
		assert.ErrorIs(t, err, ErrInvalidPath, "name %q", name)
	}
}

func TestPlace_NameCannotEscapeRoot(t *testing.T) {
	svc, meta, root := newTestService(t)
	owner := metadata.OwnerID("alice")

	staged := stageBytes(t, svc, "data")
	_, err := svc.Place(t.Context(), owner, staged, "../../escaped.txt", "")
	require.ErrorIs(t, err, ErrInvalidPath)

	// Nothing was recorded and nothing landed outside the storage root.
	assert.Equal(t, 0, countNodes(t, meta, owner))
	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escaped.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPlace_MetadataFailureRollsBackBlob(t *testing.T) {
	meta := &createFailStore{Store: memory.NewMemoryStore()}
	svc, root := newTestServiceWith(t, meta)
	owner := metadata.OwnerID("alice")

	// Pre-create the folder so the injected failure hits the file insert,
	// not the folder chain.
	_, err := svc.CreatePath(t.Context(), owner, "docs")
	require.NoError(t, err)

	meta.arm(1)
	staged := stageBytes(t, svc, "doomed")
	_, err = svc.Place(t.Context(), owner, staged, "report.txt", "docs")
	require.ErrorIs(t, err, errInjected)
	assert.NotErrorIs(t, err, ErrInconsistent, "a clean rollback is not an inconsistency")

	// The moved blob was rolled back, so neither store knows the file.
	_, err = os.Stat(filepath.Join(root, "alice", "docs", "report.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 1, countNodes(t, meta, owner), "only the folder record remains")

	// A retry with a fresh staged blob lands exactly one file.
	staged = stageBytes(t, svc, "second try")
	node, err := svc.Place(t.Context(), owner, staged, "report.txt", "docs")
	require.NoError(t, err)

	assert.Equal(t, 2, countNodes(t, meta, owner))

	_, r, err := svc.OpenFile(t.Context(), owner, node.ID)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "second try", string(data))
}
