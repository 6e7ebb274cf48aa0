// Package storetest provides a contract test suite for metadata.Store
// implementations.
//
// It tests the interface contract, not implementation details, making it
// reusable across implementations (memory, badger). Each backend runs the
// suite from its own _test.go file with a factory producing a fresh store.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite exercises the metadata.Store contract.
type StoreTestSuite struct {
	// NewStore creates a fresh Store instance for each test, ensuring test
	// isolation. The suite closes the store when the test ends.
	NewStore func(t *testing.T) metadata.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(test *testing.T) {
	test.Run("Create_AssignsIdentity", suite.TestCreate_AssignsIdentity)
	test.Run("Create_DuplicateSibling", suite.TestCreate_DuplicateSibling)
	test.Run("Create_SameNameDifferentParent", suite.TestCreate_SameNameDifferentParent)
	test.Run("Create_SameNameDifferentOwner", suite.TestCreate_SameNameDifferentOwner)
	test.Run("Create_Concurrent", suite.TestCreate_Concurrent)
	test.Run("Get_NotFound", suite.TestGet_NotFound)
	test.Run("Lookup_RootLevel", suite.TestLookup_RootLevel)
	test.Run("Lookup_NotFound", suite.TestLookup_NotFound)
	test.Run("Delete_RemovesRecordAndIndex", suite.TestDelete_RemovesRecordAndIndex)
	test.Run("Delete_NotFound", suite.TestDelete_NotFound)
	test.Run("Children", suite.TestChildren)
	test.Run("ListByOwner", suite.TestListByOwner)
}

func (suite *StoreTestSuite) newStore(t *testing.T) metadata.Store {
	store := suite.NewStore(t)
	t.Cleanup(func() { store.Close() })
	return store
}

func folder(owner metadata.OwnerID, parent *metadata.NodeID, name, dir string) *metadata.FileNode {
	return &metadata.FileNode{
		Name:         name,
		Kind:         metadata.KindFolder,
		Parent:       parent,
		Owner:        owner,
		PhysicalPath: dir,
	}
}

// TestCreate_AssignsIdentity verifies Create assigns id and timestamps and
// persists the record.
func (suite *StoreTestSuite) TestCreate_AssignsIdentity(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, folder("alice", nil, "docs", "alice/docs"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "docs", got.Name)
	assert.Equal(t, metadata.KindFolder, got.Kind)
	assert.Equal(t, metadata.OwnerID("alice"), got.Owner)
	assert.Nil(t, got.Parent)
}

// TestCreate_DuplicateSibling verifies the (owner, parent, name) uniqueness
// constraint.
func (suite *StoreTestSuite) TestCreate_DuplicateSibling(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, folder("alice", nil, "docs", "alice/docs"))
	require.NoError(t, err)

	_, err = store.Create(ctx, folder("alice", nil, "docs", "alice/docs"))
	require.ErrorIs(t, err, metadata.ErrNodeExists)

	// The winner is still resolvable.
	got, err := store.Lookup(ctx, "alice", nil, "docs")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

// TestCreate_SameNameDifferentParent verifies the constraint only binds
// siblings.
func (suite *StoreTestSuite) TestCreate_SameNameDifferentParent(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	parent, err := store.Create(ctx, folder("alice", nil, "a", "alice/a"))
	require.NoError(t, err)

	_, err = store.Create(ctx, folder("alice", nil, "x", "alice/x"))
	require.NoError(t, err)

	_, err = store.Create(ctx, folder("alice", &parent.ID, "x", "alice/a/x"))
	require.NoError(t, err)
}

// TestCreate_SameNameDifferentOwner verifies owners do not share a namespace.
func (suite *StoreTestSuite) TestCreate_SameNameDifferentOwner(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, folder("alice", nil, "docs", "alice/docs"))
	require.NoError(t, err)

	_, err = store.Create(ctx, folder("bob", nil, "docs", "bob/docs"))
	require.NoError(t, err)
}

// TestCreate_Concurrent verifies racing creates for the same tuple yield
// exactly one record, with every loser seeing ErrNodeExists.
func (suite *StoreTestSuite) TestCreate_Concurrent(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	const racers = 16

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.Create(ctx, folder("alice", nil, "shared", "alice/shared"))
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, metadata.ErrNodeExists)
		}
	}
	assert.Equal(t, 1, winners)

	nodes, err := store.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func (suite *StoreTestSuite) TestGet_NotFound(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, metadata.ErrNodeNotFound)
}

// TestLookup_RootLevel verifies nil-parent lookup addresses the owner's root.
func (suite *StoreTestSuite) TestLookup_RootLevel(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, folder("alice", nil, "docs", "alice/docs"))
	require.NoError(t, err)

	got, err := store.Lookup(ctx, "alice", nil, "docs")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// The same name under another owner's root does not resolve.
	_, err = store.Lookup(ctx, "bob", nil, "docs")
	require.ErrorIs(t, err, metadata.ErrNodeNotFound)
}

func (suite *StoreTestSuite) TestLookup_NotFound(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.Lookup(context.Background(), "alice", nil, "nope")
	require.ErrorIs(t, err, metadata.ErrNodeNotFound)
}

// TestDelete_RemovesRecordAndIndex verifies a deleted name becomes reusable.
func (suite *StoreTestSuite) TestDelete_RemovesRecordAndIndex(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, folder("alice", nil, "docs", "alice/docs"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))

	_, err = store.Get(ctx, created.ID)
	require.ErrorIs(t, err, metadata.ErrNodeNotFound)
	_, err = store.Lookup(ctx, "alice", nil, "docs")
	require.ErrorIs(t, err, metadata.ErrNodeNotFound)

	// The name is free again.
	_, err = store.Create(ctx, folder("alice", nil, "docs", "alice/docs"))
	require.NoError(t, err)
}

func (suite *StoreTestSuite) TestDelete_NotFound(t *testing.T) {
	store := suite.newStore(t)

	err := store.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, metadata.ErrNodeNotFound)
}

// TestChildren verifies child listing by parent, including the root level.
func (suite *StoreTestSuite) TestChildren(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	parent, err := store.Create(ctx, folder("alice", nil, "a", "alice/a"))
	require.NoError(t, err)
	_, err = store.Create(ctx, folder("alice", &parent.ID, "b", "alice/a/b"))
	require.NoError(t, err)
	_, err = store.Create(ctx, folder("alice", &parent.ID, "c", "alice/a/c"))
	require.NoError(t, err)
	_, err = store.Create(ctx, folder("bob", nil, "a", "bob/a"))
	require.NoError(t, err)

	children, err := store.Children(ctx, "alice", &parent.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	roots, err := store.Children(ctx, "alice", nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "a", roots[0].Name)

	empty, err := store.Children(ctx, "carol", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestListByOwner verifies the flat per-owner listing.
func (suite *StoreTestSuite) TestListByOwner(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	parent, err := store.Create(ctx, folder("alice", nil, "a", "alice/a"))
	require.NoError(t, err)
	_, err = store.Create(ctx, folder("alice", &parent.ID, "b", "alice/a/b"))
	require.NoError(t, err)
	_, err = store.Create(ctx, folder("bob", nil, "x", "bob/x"))
	require.NoError(t, err)

	nodes, err := store.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	nodes, err = store.ListByOwner(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
