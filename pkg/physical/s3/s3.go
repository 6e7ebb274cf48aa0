// Package s3 implements physical.Store on Amazon S3 or S3-compatible
// storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/physical"
)

// stagingPrefix holds staged blobs until they are moved into place.
const stagingPrefix = ".staging/"

// S3Store implements physical.Store using an S3 bucket.
//
// Path Mapping:
// Logical slash paths become object key prefixes under an optional configured
// key prefix; the blob at dir/name is the object "<prefix><dir>/<name>".
// Directories are implicit in S3, so EnsureDir only needs to be cheap and
// idempotent (it is a no-op) and RemoveTree is a prefixed bulk delete.
//
// Atomic Placement:
// S3 object writes are atomic at the object level: a key either resolves to
// the complete object or not at all, never to partial bytes. Move therefore
// server-side-copies the fully staged object to its destination key and then
// deletes the staged object, satisfying the all-or-nothing visibility
// contract without a filesystem-style rename.
//
// Compatible Storage:
// A custom endpoint with path-style addressing supports MinIO, Localstack
// and similar S3-compatible services.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3StoreConfig contains configuration for the S3 physical store.
type S3StoreConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, e.g. "drive/".
	KeyPrefix string
}

// NewS3Store creates an S3-backed physical store and verifies bucket access.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	store := &S3Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}

	_, err := store.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(store.bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", store.bucket, err)
	}

	return store, nil
}

// key maps a logical dir/name pair onto an object key.
func (s *S3Store) key(dir, name string) string {
	if dir == "" {
		return s.keyPrefix + name
	}
	return s.keyPrefix + dir + "/" + name
}

func (s *S3Store) stagedKey(staged physical.StagedID) string {
	return s.keyPrefix + stagingPrefix + string(staged)
}

// Stage uploads r to a uniquely named object under the staging prefix.
//
// The reader is spooled to a temporary file first so the SDK gets a seekable
// body with a known length; unseekable bodies cannot be signed and retried.
func (s *S3Store) Stage(ctx context.Context, r io.Reader) (physical.StagedID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	spool, err := os.CreateTemp("", "dittodrive-stage-*")
	if err != nil {
		return "", fmt.Errorf("failed to create spool file: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	size, err := io.Copy(spool, r)
	if err != nil {
		return "", fmt.Errorf("failed to spool upload: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind spool file: %w", err)
	}

	id := physical.StagedID(uuid.New().String())
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.stagedKey(id)),
		Body:          spool,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload staged blob: %w", err)
	}

	return id, nil
}

// DiscardStaged deletes a staged object. S3 DeleteObject succeeds for
// missing keys, so absence is tolerated for free.
func (s *S3Store) DiscardStaged(ctx context.Context, staged physical.StagedID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.stagedKey(staged)),
	})
	if err != nil {
		return fmt.Errorf("failed to discard staged blob: %w", err)
	}
	return nil
}

// EnsureDir is a no-op: S3 has no directories, prefixes exist implicitly.
func (s *S3Store) EnsureDir(ctx context.Context, dir string) error {
	return ctx.Err()
}

// Move server-side-copies the staged object to dir/name and deletes the
// staged original. The copy is atomic at the destination key.
//
// A failure after the copy leaves the staged object behind; that is an
// orphan in the invisible staging area, not a consistency violation, and the
// caller may retry or discard.
func (s *S3Store) Move(ctx context.Context, staged physical.StagedID, dir, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := s.key(dir, name)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(dst),
	})
	if err == nil {
		return fmt.Errorf("%s/%s: %w", dir, name, physical.ErrDestinationExists)
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check destination: %w", err)
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + s.stagedKey(staged)),
		Key:        aws.String(dst),
	})
	if err != nil {
		return fmt.Errorf("failed to copy staged blob into place: %w", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.stagedKey(staged)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete staged blob after copy: %w", err)
	}
	return nil
}

// Open returns a reader over the object at dir/name.
func (s *S3Store) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(dir, name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%s/%s: %w", dir, name, physical.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	return result.Body, nil
}

// RemoveFile deletes the object at dir/name. Absence is tolerated.
func (s *S3Store) RemoveFile(ctx context.Context, dir, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(dir, name)),
	})
	if err != nil {
		return fmt.Errorf("failed to remove blob %s/%s: %w", dir, name, err)
	}
	return nil
}

// RemoveTree deletes every object under the dir prefix in batches. An empty
// listing means the tree is already gone, which is tolerated.
func (s *S3Store) RemoveTree(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := s.keyPrefix + dir + "/"

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects under %s: %w", dir, err)
		}

		// Check for individual errors: a batch delete can partially fail,
		// and treating that as success would strand the surviving objects
		// with no record once the caller drops the metadata.
		if len(result.Errors) > 0 {
			failed := make([]string, 0, len(result.Errors))
			for _, deleteErr := range result.Errors {
				if deleteErr.Key != nil {
					failed = append(failed, *deleteErr.Key)
				}
			}
			return fmt.Errorf("failed to delete %d object(s) under %s (keys: %s)",
				len(result.Errors), dir, strings.Join(failed, ", "))
		}
	}
	return nil
}

// Close is a no-op; the S3 client holds no resources needing release.
func (s *S3Store) Close() error {
	return nil
}
