package badger

import (
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so we use prefixed keys to organize the
// record data and its two indexes into logical namespaces. This design:
//   - Prevents key collisions between data types
//   - Enables efficient range scans (children of a folder, nodes of an owner)
//   - Makes the database structure self-documenting
//
// Key Namespace Prefixes:
//
// Data Type        Prefix  Key Format                         Value
// =========================================================================
// Node Data        "n:"    n:<nodeID>                         FileNode (JSON)
// Sibling Index    "c:"    c:<owner>/<parentID|->/<name>      nodeID (bytes)
// Owner Index      "o:"    o:<owner>/<nodeID>                 (empty)
//
// Sibling Index (c:)
//   - One entry per node, keyed by the (owner, parent, name) tuple
//   - Backs Lookup: point get, O(1)
//   - Backs the uniqueness constraint: Create checks and inserts this key
//     inside one write transaction, so a duplicate sibling can never commit
//   - "-" stands in for a nil parent (the owner's root level); node ids are
//     UUIDs, so "-" alone can never collide with a real parent id
//   - List children of a parent: range scan over "c:<owner>/<parentID>/"
//
// Owner Index (o:)
//   - One empty-valued entry per node
//   - Backs ListByOwner: range scan over "o:<owner>/", then point gets
//
// All three entries for a node are written and deleted inside a single badger
// transaction, so the indexes can never drift from the node data.

const (
	prefixNode    = "n:"
	prefixSibling = "c:"
	prefixOwner   = "o:"

	// rootParent is the sibling-index stand-in for a nil parent.
	rootParent = "-"
)

// keyNode generates the key for node data.
func keyNode(id metadata.NodeID) []byte {
	return []byte(prefixNode + string(id))
}

// keySibling generates the sibling-index key for (owner, parent, name).
func keySibling(owner metadata.OwnerID, parent *metadata.NodeID, name string) []byte {
	return append(keySiblingScope(owner, parent), name...)
}

// keySiblingScope generates the range-scan prefix covering every child of
// parent for owner.
func keySiblingScope(owner metadata.OwnerID, parent *metadata.NodeID) []byte {
	p := rootParent
	if parent != nil {
		p = string(*parent)
	}
	return []byte(prefixSibling + string(owner) + "/" + p + "/")
}

// keyOwner generates the owner-index key for a node.
func keyOwner(owner metadata.OwnerID, id metadata.NodeID) []byte {
	return append(keyOwnerScope(owner), id...)
}

// keyOwnerScope generates the range-scan prefix covering every node of owner.
func keyOwnerScope(owner metadata.OwnerID) []byte {
	return []byte(prefixOwner + string(owner) + "/")
}
