package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/metadata"
)

// Serialization Strategy
// ======================
//
// Node records are stored as JSON. The records are small (a handful of short
// strings and two timestamps), so the JSON overhead is negligible, and the
// database stays human-inspectable with badger's tooling. Index values are
// raw bytes: the sibling index stores the node id, the owner index stores
// nothing at all (the key carries the id).

// encodeNode serializes a FileNode to JSON bytes.
func encodeNode(n *metadata.FileNode) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node %s: %w", n.ID, err)
	}
	return data, nil
}

// decodeNode deserializes JSON bytes into a FileNode.
func decodeNode(data []byte) (*metadata.FileNode, error) {
	var n metadata.FileNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to decode node: %w", err)
	}
	return &n, nil
}
