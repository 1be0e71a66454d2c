//go:build integration

package s3node_test

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/storage/s3node"
)

// setupTestS3 creates an S3 client and a test bucket against Localstack or
// another S3-compatible endpoint. The returned cleanup function removes every
// object and then the bucket.
//
// Run with: go test -tags=integration ./pkg/storage/s3node/...
// Start Localstack with: docker run --rm -p 4566:4566 localstack/localstack
func setupTestS3(t *testing.T, bucketName string) (*s3.Client, func()) {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test", "test", "",
		)),
	)
	require.NoError(t, err, "failed to load AWS config")

	// Localstack requires path-style bucket addressing.
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	require.NoError(t, err, "failed to create test bucket")

	cleanup := func() {
		listResp, _ := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucketName),
		})
		if listResp != nil {
			for _, obj := range listResp.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{
					Bucket: aws.String(bucketName),
					Key:    obj.Key,
				})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{
			Bucket: aws.String(bucketName),
		})
	}

	return client, cleanup
}

func newTestBackend(t *testing.T, client *s3.Client, bucket, keyPrefix string, capacity int64) *s3node.S3Backend {
	t.Helper()
	backend, err := s3node.NewS3Backend(context.Background(), s3node.S3BackendConfig{
		Client:    client,
		Bucket:    bucket,
		KeyPrefix: keyPrefix,
		Capacity:  capacity,
	})
	require.NoError(t, err)
	return backend
}

func TestS3BackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := "driftfs-test-roundtrip"
	client, cleanup := setupTestS3(t, bucket)
	defer cleanup()

	backend := newTestBackend(t, client, bucket, "content/", 1<<20)

	info, err := backend.Upload(ctx, "file-1", 11, strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), info.Capacity)
	assert.Equal(t, int64(11), info.Used)

	content, err := backend.Download(ctx, "file-1")
	require.NoError(t, err)
	data, err := io.ReadAll(content)
	require.NoError(t, err)
	require.NoError(t, content.Close())
	assert.Equal(t, "hello world", string(data))

	info, err = backend.Delete(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Used)

	_, err = backend.Download(ctx, "file-1")
	require.Error(t, err, "the object is gone after delete")
}

func TestS3BackendOverwriteReplacesContent(t *testing.T) {
	ctx := context.Background()
	bucket := "driftfs-test-overwrite"
	client, cleanup := setupTestS3(t, bucket)
	defer cleanup()

	backend := newTestBackend(t, client, bucket, "content/", 1<<20)

	_, err := backend.Upload(ctx, "file-1", 11, strings.NewReader("version one"))
	require.NoError(t, err)

	info, err := backend.Upload(ctx, "file-1", 2, strings.NewReader("v2"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Used, "usage reflects the overwrite, not the sum")

	content, err := backend.Download(ctx, "file-1")
	require.NoError(t, err)
	data, err := io.ReadAll(content)
	require.NoError(t, err)
	require.NoError(t, content.Close())
	assert.Equal(t, "v2", string(data))
}

func TestS3BackendDeleteMissingObject(t *testing.T) {
	ctx := context.Background()
	bucket := "driftfs-test-delete-missing"
	client, cleanup := setupTestS3(t, bucket)
	defer cleanup()

	backend := newTestBackend(t, client, bucket, "", 1<<20)

	// S3 delete is idempotent; a missing object is not an error.
	info, err := backend.Delete(ctx, "never-uploaded")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Used)
}

func TestS3BackendKeyPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	bucket := "driftfs-test-prefixes"
	client, cleanup := setupTestS3(t, bucket)
	defer cleanup()

	first := newTestBackend(t, client, bucket, "node-a/", 1<<20)
	second := newTestBackend(t, client, bucket, "node-b/", 1<<20)

	_, err := first.Upload(ctx, "file-1", 3, strings.NewReader("aaa"))
	require.NoError(t, err)

	info, err := second.Upload(ctx, "file-1", 5, strings.NewReader("bbbbb"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Used, "usage only counts objects under the node's prefix")

	_, err = first.Delete(ctx, "file-1")
	require.NoError(t, err)

	// node-b's object shares the id but lives under a different key.
	content, err := second.Download(ctx, "file-1")
	require.NoError(t, err)
	data, err := io.ReadAll(content)
	require.NoError(t, err)
	require.NoError(t, content.Close())
	assert.Equal(t, "bbbbb", string(data))
}

func TestNewS3BackendRejectsMissingBucket(t *testing.T) {
	ctx := context.Background()
	bucket := "driftfs-test-exists"
	client, cleanup := setupTestS3(t, bucket)
	defer cleanup()

	_, err := s3node.NewS3Backend(ctx, s3node.S3BackendConfig{
		Client: client,
		Bucket: "driftfs-no-such-bucket",
	})
	require.Error(t, err, "bucket access is verified at construction")
}
