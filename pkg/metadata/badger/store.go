// Package badger implements metadata.Store using BadgerDB for persistence.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// BadgerStore implements metadata.Store backed by BadgerDB, a fast embedded
// key-value store. It is suitable for:
//   - Production deployments requiring metadata to survive restarts
//   - Crash recovery (WAL-based)
//   - Metadata trees far larger than available memory
//
// Storage Model:
// Records and their two indexes live under prefixed key namespaces (see
// keys.go). Every mutation touches the node key and both index keys inside a
// single badger write transaction, so the indexes never drift from the data.
//
// Uniqueness Constraint:
// Create checks the sibling-index key and inserts it in the same serializable
// transaction. Badger's SSI detects two racing transactions over that key and
// aborts one with ErrConflict; the aborted Create retries, observes the
// winner's entry and returns metadata.ErrNodeExists. This closes the
// lookup-then-create race at the store level.
type BadgerStore struct {
	db *badger.DB
}

// createRetries bounds the ErrConflict retry loop in Create. A conflict means
// another transaction committed over the same sibling key, so one retry is
// enough in practice; the headroom covers unrelated key overlaps.
const createRetries = 3

// NewBadgerStore opens (or creates) a badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", path, err)
	}

	return &BadgerStore{db: db}, nil
}

// Get returns the node with the given id.
func (s *BadgerStore) Get(ctx context.Context, id metadata.NodeID) (*metadata.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var node *metadata.FileNode
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		node, err = getNode(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Lookup returns the child of parent named name for owner.
func (s *BadgerStore) Lookup(ctx context.Context, owner metadata.OwnerID, parent *metadata.NodeID, name string) (*metadata.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var node *metadata.FileNode
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keySibling(owner, parent, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("child %q: %w", name, metadata.ErrNodeNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read sibling index: %w", err)
		}

		id, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read sibling index value: %w", err)
		}

		node, err = getNode(txn, metadata.NodeID(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Create persists a new node. The sibling-uniqueness check and the insert
// happen in one write transaction; see the type documentation for how racing
// creates are resolved.
func (s *BadgerStore) Create(ctx context.Context, node *metadata.FileNode) (*metadata.FileNode, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stored, err := s.tryCreate(node)
		if errors.Is(err, badger.ErrConflict) && attempt < createRetries {
			continue
		}
		return stored, err
	}
}

func (s *BadgerStore) tryCreate(node *metadata.FileNode) (*metadata.FileNode, error) {
	now := time.Now()
	stored := node.Clone()
	stored.ID = metadata.NodeID(uuid.New().String())
	stored.CreatedAt = now
	stored.UpdatedAt = now

	err := s.db.Update(func(txn *badger.Txn) error {
		siblingKey := keySibling(stored.Owner, stored.Parent, stored.Name)

		_, err := txn.Get(siblingKey)
		if err == nil {
			return fmt.Errorf("sibling %q: %w", stored.Name, metadata.ErrNodeExists)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check sibling index: %w", err)
		}

		data, err := encodeNode(stored)
		if err != nil {
			return err
		}

		if err := txn.Set(keyNode(stored.ID), data); err != nil {
			return fmt.Errorf("failed to store node: %w", err)
		}
		if err := txn.Set(siblingKey, []byte(stored.ID)); err != nil {
			return fmt.Errorf("failed to store sibling index: %w", err)
		}
		if err := txn.Set(keyOwner(stored.Owner, stored.ID), nil); err != nil {
			return fmt.Errorf("failed to store owner index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete removes the record with the given id and its index entries.
func (s *BadgerStore) Delete(ctx context.Context, id metadata.NodeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		node, err := getNode(txn, id)
		if err != nil {
			return err
		}

		if err := txn.Delete(keyNode(id)); err != nil {
			return fmt.Errorf("failed to delete node: %w", err)
		}
		if err := txn.Delete(keySibling(node.Owner, node.Parent, node.Name)); err != nil {
			return fmt.Errorf("failed to delete sibling index: %w", err)
		}
		if err := txn.Delete(keyOwner(node.Owner, id)); err != nil {
			return fmt.Errorf("failed to delete owner index: %w", err)
		}
		return nil
	})
}

// Children returns all nodes under the given parent for owner, via a range
// scan over the sibling index.
func (s *BadgerStore) Children(ctx context.Context, owner metadata.OwnerID, parent *metadata.NodeID) ([]*metadata.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []*metadata.FileNode
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keySiblingScope(owner, parent)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read sibling index value: %w", err)
			}
			node, err := getNode(txn, metadata.NodeID(id))
			if err != nil {
				return err
			}
			result = append(result, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListByOwner returns every node owned by owner, via a range scan over the
// owner index.
func (s *BadgerStore) ListByOwner(ctx context.Context, owner metadata.OwnerID) ([]*metadata.FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scope := keyOwnerScope(owner)

	var result []*metadata.FileNode
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scope
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id := string(it.Item().Key()[len(scope):])
			node, err := getNode(txn, metadata.NodeID(id))
			if err != nil {
				return err
			}
			result = append(result, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close closes the underlying badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// getNode reads and decodes a node inside an open transaction.
func getNode(txn *badger.Txn, id metadata.NodeID) (*metadata.FileNode, error) {
	item, err := txn.Get(keyNode(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("node %s: %w", id, metadata.ErrNodeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read node: %w", err)
	}

	var node *metadata.FileNode
	err = item.Value(func(val []byte) error {
		var derr error
		node, derr = decodeNode(val)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}
