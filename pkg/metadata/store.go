// Package metadata defines the FileNode record model and the Store interface
// persisting it.
//
// The metadata store manages the logical tree (records, parent links, sibling
// uniqueness) but never touches file bytes. Physical storage is handled
// separately by pkg/physical; the hierarchy engine in pkg/hierarchy keeps the
// two in lockstep.
//
// This separation allows:
//   - Independent choice of record backend (in-memory, BadgerDB) and byte
//     backend (local filesystem, S3)
//   - The consistency engine to be tested against cheap in-memory stores
//   - Store implementations to stay free of tree-walking logic
package metadata

import (
	"context"
	"errors"
)

// ============================================================================
// Standard Metadata Store Errors
// ============================================================================

// Implementations wrap these sentinels with additional context:
//
//	return fmt.Errorf("node %s: %w", id, metadata.ErrNodeNotFound)
//
// Callers test with errors.Is.
var (
	// ErrNodeNotFound indicates no record exists for the requested id or
	// (owner, parent, name) tuple.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeExists indicates a Create violated the (owner, parent, name)
	// sibling-uniqueness constraint. The caller should fetch the existing
	// sibling with Lookup and decide whether to adopt it (path resolution)
	// or fail with a conflict (upload placement).
	ErrNodeExists = errors.New("node already exists")
)

// Store persists FileNode records.
//
// Uniqueness Contract:
// Create MUST enforce (owner, parent, name) uniqueness atomically with the
// insert. Two concurrent Create calls for the same tuple must result in
// exactly one record, with the loser receiving ErrNodeExists. A separate
// lookup followed by Create is NOT an acceptable implementation strategy for
// this constraint; the check and the insert have to happen under one lock or
// transaction.
//
// Thread Safety:
// All methods must be safe for concurrent use by multiple goroutines.
//
// Context:
// All methods check ctx before doing work and return ctx.Err() when the
// context is done.
type Store interface {
	// Get returns the node with the given id, or ErrNodeNotFound.
	Get(ctx context.Context, id NodeID) (*FileNode, error)

	// Lookup returns the child of parent named name for owner, or
	// ErrNodeNotFound. A nil parent addresses the owner's root level.
	Lookup(ctx context.Context, owner OwnerID, parent *NodeID, name string) (*FileNode, error)

	// Create persists a new node, assigning ID, CreatedAt and UpdatedAt.
	// The input node's ID and timestamps are ignored. Returns the stored
	// node, or ErrNodeExists when a sibling with the same name already
	// exists (see the uniqueness contract above).
	Create(ctx context.Context, node *FileNode) (*FileNode, error)

	// Delete removes the record with the given id. Returns ErrNodeNotFound
	// if no such record exists. Descendant records are NOT touched; the
	// hierarchy engine enumerates and deletes them explicitly.
	Delete(ctx context.Context, id NodeID) error

	// Children returns all nodes whose parent is the given id, in store
	// iteration order. A nil parent lists the owner's root level. An empty
	// result is not an error.
	Children(ctx context.Context, owner OwnerID, parent *NodeID) ([]*FileNode, error)

	// ListByOwner returns every node owned by owner, flat and unordered
	// beyond store iteration order.
	ListByOwner(ctx context.Context, owner OwnerID) ([]*FileNode, error)

	// Close releases store resources. The store must not be used afterwards.
	Close() error
}
