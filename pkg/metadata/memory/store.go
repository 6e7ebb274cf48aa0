// Package memory implements metadata.Store entirely in process memory.
//
// This implementation is suitable for:
//   - Tests (fast, no disk, fresh state per instance)
//   - Development and demos
//   - Deployments where metadata loss on restart is acceptable
//
// For persistence across restarts use the BadgerDB implementation in
// pkg/metadata/badger.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// MemoryStore implements metadata.Store backed by maps.
//
// Thread Safety:
// All operations are protected by a single read-write mutex. This
// coarse-grained locking is simple and correct; it also makes the
// (owner, parent, name) uniqueness check in Create atomic with the insert,
// which is exactly the guarantee the Store contract requires.
type MemoryStore struct {
	mu sync.RWMutex

	// nodes maps node id to record.
	nodes map[metadata.NodeID]*metadata.FileNode

	// children is the sibling index: (owner, parent, name) -> node id.
	// It backs both Lookup and the uniqueness constraint in Create.
	children map[string]metadata.NodeID
}

// NewMemoryStore creates an empty in-memory metadata store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:    make(map[metadata.NodeID]*metadata.FileNode),
		children: make(map[string]metadata.NodeID),
	}
}

// childKey builds the sibling-index key for (owner, parent, name).
// Parent ids are UUIDs and owner ids come from the auth layer; neither can
// contain the NUL separator, so the key is unambiguous.
func childKey(owner metadata.OwnerID, parent *metadata.NodeID, name string) string {
	p := ""
	if parent != nil {
		p = string(*parent)
	}
	return strings.Join([]string{string(owner), p, name}, "\x00")
}

// Get returns the node with the given id.
func (s *MemoryStore) Get(ctx context.Context, id metadata.NodeID) (*metadata.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, metadata.ErrNodeNotFound)
	}
	return n.Clone(), nil
}

// Lookup returns the child of parent named name for owner.
func (s *MemoryStore) Lookup(ctx context.Context, owner metadata.OwnerID, parent *metadata.NodeID, name string) (*metadata.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.children[childKey(owner, parent, name)]
	if !ok {
		return nil, fmt.Errorf("child %q: %w", name, metadata.ErrNodeNotFound)
	}
	return s.nodes[id].Clone(), nil
}

// Create persists a new node, enforcing sibling uniqueness atomically under
// the store mutex.
func (s *MemoryStore) Create(ctx context.Context, node *metadata.FileNode) (*metadata.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := childKey(node.Owner, node.Parent, node.Name)
	if _, taken := s.children[key]; taken {
		return nil, fmt.Errorf("sibling %q: %w", node.Name, metadata.ErrNodeExists)
	}

	now := time.Now()
	stored := node.Clone()
	stored.ID = metadata.NodeID(uuid.New().String())
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.nodes[stored.ID] = stored
	s.children[key] = stored.ID

	return stored.Clone(), nil
}

// Delete removes the record with the given id along with its sibling-index
// entry. Descendants are left untouched.
func (s *MemoryStore) Delete(ctx context.Context, id metadata.NodeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, metadata.ErrNodeNotFound)
	}

	delete(s.children, childKey(n.Owner, n.Parent, n.Name))
	delete(s.nodes, id)
	return nil
}

// Children returns all nodes under the given parent for owner.
func (s *MemoryStore) Children(ctx context.Context, owner metadata.OwnerID, parent *metadata.NodeID) ([]*metadata.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*metadata.FileNode
	for _, n := range s.nodes {
		if n.Owner != owner {
			continue
		}
		if sameParent(n.Parent, parent) {
			result = append(result, n.Clone())
		}
	}
	return result, nil
}

// ListByOwner returns every node owned by owner.
func (s *MemoryStore) ListByOwner(ctx context.Context, owner metadata.OwnerID) ([]*metadata.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*metadata.FileNode
	for _, n := range s.nodes {
		if n.Owner == owner {
			result = append(result, n.Clone())
		}
	}
	return result, nil
}

// Close releases the store. For the in-memory implementation this only drops
// the maps so later use fails fast.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
	s.children = nil
	return nil
}

func sameParent(a, b *metadata.NodeID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
