// Package fs implements physical.Store on the local filesystem.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/physical"
)

// stagingDir is the staging area inside the store root. Keeping it under the
// same root guarantees staged blobs and their destinations share a
// filesystem, so os.Rename in Move is an atomic rename and never degrades to
// a copy.
const stagingDir = ".staging"

// FSStore implements physical.Store using a local directory tree.
//
// Logical slash-separated paths map onto the filesystem below the configured
// root via filepath.Join; the tree on disk mirrors the logical tree by name.
//
// Thread Safety:
// Individual operations rely on the atomicity of the underlying syscalls
// (mkdir, rename, unlink). Concurrent conflicting mutations of the same
// paths are serialized by the caller.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at root, creating the root
// and its staging area if missing.
func NewFSStore(ctx context.Context, root string) (*FSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &FSStore{root: root}, nil
}

// resolve maps a logical slash path onto the filesystem under the root.
func (s *FSStore) resolve(dir string) string {
	return filepath.Join(s.root, filepath.FromSlash(dir))
}

// Stage copies r to a uniquely named file in the staging area.
func (s *FSStore) Stage(ctx context.Context, r io.Reader) (physical.StagedID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := physical.StagedID(uuid.New().String())
	path := filepath.Join(s.root, stagingDir, string(id))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close staging file: %w", err)
	}

	return id, nil
}

// DiscardStaged removes a staged blob. Absence is tolerated.
func (s *FSStore) DiscardStaged(ctx context.Context, staged physical.StagedID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.root, stagingDir, string(staged)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to discard staged blob: %w", err)
	}
	return nil
}

// EnsureDir creates dir and any missing parents. Idempotent, including when
// a previous partial attempt already created the directory on disk.
func (s *FSStore) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.resolve(dir), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Move atomically renames a staged blob to dir/name.
//
// The existence check and the rename are not one atomic step at the
// filesystem level; the caller's per-owner serialization closes that window.
// The rename itself is atomic, so readers never observe a partial blob.
func (s *FSStore) Move(ctx context.Context, staged physical.StagedID, dir, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src := filepath.Join(s.root, stagingDir, string(staged))
	dst := filepath.Join(s.resolve(dir), name)

	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s/%s: %w", dir, name, physical.ErrDestinationExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check destination: %w", err)
	}

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move staged blob into place: %w", err)
	}
	return nil
}

// Open returns a reader over the blob at dir/name.
func (s *FSStore) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.resolve(dir), name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", dir, name, physical.ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// RemoveFile deletes the blob at dir/name. Absence is tolerated so that an
// interrupted deletion can be re-run.
func (s *FSStore) RemoveFile(ctx context.Context, dir, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.resolve(dir), name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove blob %s/%s: %w", dir, name, err)
	}
	return nil
}

// RemoveTree recursively deletes dir. Absence is tolerated.
func (s *FSStore) RemoveTree(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.resolve(dir)); err != nil {
		return fmt.Errorf("failed to remove directory %s: %w", dir, err)
	}
	return nil
}

// Close is a no-op for the filesystem store.
func (s *FSStore) Close() error {
	return nil
}
