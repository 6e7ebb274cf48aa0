package metadata

import "time"

// NodeID is an opaque unique identifier for a FileNode.
//
// IDs are assigned by the metadata store on creation (UUID v4 in the bundled
// implementations) and are stable for the lifetime of the node. Callers must
// treat them as opaque strings.
type NodeID string

// OwnerID identifies the user owning a node. Identity verification happens
// outside this package; an OwnerID handed to the store is assumed valid.
type OwnerID string

// NodeKind distinguishes files from folders.
type NodeKind int

const (
	// KindFolder is a directory node. Its physical representation is the
	// directory named by PhysicalPath.
	KindFolder NodeKind = iota

	// KindFile is a regular file node. Its physical representation lives at
	// PhysicalPath/Name.
	KindFile
)

func (k NodeKind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// FileNode is one record in a per-owner directed tree of files and folders.
//
// Tree Invariants:
//   - The parent relation forms a forest per owner: every non-root node has
//     exactly one parent, the parent belongs to the same owner, and there are
//     no cycles.
//   - (Owner, Parent, Name) is unique among siblings. The store enforces this
//     atomically on Create (see Store.Create).
//   - PhysicalPath is derived from the names of the node's ancestors under the
//     owner's storage root. It is never mutated independently.
//   - Kind and Owner are immutable after creation.
//
// Dual Existence:
// A Folder record exists if and only if its physical directory exists. The
// hierarchy engine upholds this by ordering operations (directory creation
// before record creation, physical removal before record removal); the store
// itself only persists records.
type FileNode struct {
	// ID is the store-assigned unique identifier.
	ID NodeID `json:"id"`

	// Name is the path segment for this node, unique among siblings.
	Name string `json:"name"`

	// Kind is File or Folder, immutable after creation.
	Kind NodeKind `json:"kind"`

	// Parent is the id of the containing folder, or nil for nodes directly
	// under the owner's root.
	Parent *NodeID `json:"parent,omitempty"`

	// Owner is the id of the owning user, immutable after creation.
	Owner OwnerID `json:"owner"`

	// PhysicalPath is the physical-store directory holding this node's
	// on-disk representation: the containing directory for a File, the
	// node's own directory for a Folder. Always slash-separated.
	PhysicalPath string `json:"physical_path"`

	// CreatedAt and UpdatedAt are set by the store.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFolder reports whether the node is a folder.
func (n *FileNode) IsFolder() bool {
	return n.Kind == KindFolder
}

// Clone returns a deep copy of the node. Stores return clones so callers can
// never mutate persisted state through a shared pointer.
func (n *FileNode) Clone() *FileNode {
	c := *n
	if n.Parent != nil {
		p := *n.Parent
		c.Parent = &p
	}
	return &c
}
