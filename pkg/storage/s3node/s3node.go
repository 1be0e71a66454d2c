// Package s3node implements the storage.Backend contract on top of Amazon S3
// or S3-compatible object storage.
//
// Content objects are stored flat under an optional key prefix, named by the
// file row id. Unlike HTTP nodes, S3 reports no capacity of its own: the
// node's capacity comes from configuration and usage is computed by listing
// the bucket prefix after each mutation.
package s3node

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/driftfs/driftfs/pkg/storage"
)

// S3Backend stores content objects in a single bucket.
//
// Thread Safety:
// Safe for concurrent use. Concurrent writes to the same object id are
// last-write-wins, which matches the overwrite semantics of uploads.
type S3Backend struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	capacity  int64
}

// S3BackendConfig contains configuration for an S3 storage backend.
type S3BackendConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "driftfs/" results in keys like "driftfs/<file-id>".
	KeyPrefix string

	// Capacity is the advertised node capacity in bytes, used for usage
	// reports since S3 itself is unbounded.
	Capacity int64
}

// NewS3Backend creates an S3 storage backend and verifies bucket access.
func NewS3Backend(ctx context.Context, cfg S3BackendConfig) (*S3Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Backend{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		capacity:  cfg.Capacity,
	}, nil
}

// Upload stores content under id, overwriting any existing object.
func (b *S3Backend) Upload(ctx context.Context, id string, size int64, content io.Reader) (storage.SpaceInfo, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.objectKey(id)),
		Body:          content,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return storage.SpaceInfo{}, fmt.Errorf("failed to upload object %q: %w", id, err)
	}
	return b.usage(ctx)
}

// Download opens the content stored under id.
func (b *S3Backend) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(id)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("object %q not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to download object %q: %w", id, err)
	}
	return out.Body, nil
}

// Delete removes the content stored under id. Deleting a missing object is
// not an error, matching S3 semantics.
func (b *S3Backend) Delete(ctx context.Context, id string) (storage.SpaceInfo, error) {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(id)),
	})
	if err != nil {
		return storage.SpaceInfo{}, fmt.Errorf("failed to delete object %q: %w", id, err)
	}
	return b.usage(ctx)
}

func (b *S3Backend) objectKey(id string) string {
	return b.keyPrefix + id
}

// usage sums object sizes under the key prefix via paginated listing.
func (b *S3Backend) usage(ctx context.Context) (storage.SpaceInfo, error) {
	var used int64

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return storage.SpaceInfo{}, fmt.Errorf("failed to list bucket %q: %w", b.bucket, err)
		}
		for _, object := range page.Contents {
			used += aws.ToInt64(object.Size)
		}
	}
	return storage.SpaceInfo{Capacity: b.capacity, Used: used}, nil
}
