package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/metadata"
	metadataBadger "github.com/driftfs/driftfs/pkg/metadata/badger"
	metadataMemory "github.com/driftfs/driftfs/pkg/metadata/memory"
	"github.com/driftfs/driftfs/pkg/storage"
	"github.com/driftfs/driftfs/pkg/storage/httpnode"
	"github.com/driftfs/driftfs/pkg/storage/s3node"
)

// CreateMetadataStore creates a metadata store based on configuration.
//
// The Type field selects the implementation; the matching type-specific map
// is decoded into the implementation's own config struct.
//
// Supported types:
//   - "memory": pkg/metadata/memory (in-memory, ephemeral)
//   - "badger": pkg/metadata/badger (BadgerDB, persistent)
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return metadataMemory.NewMemoryMetadataStore(), nil
	case "badger":
		return createBadgerMetadataStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createBadgerMetadataStore creates a BadgerDB-based persistent metadata store.
func createBadgerMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	type BadgerOptions struct {
		Path             string `mapstructure:"path"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_mb"`
		IndexCacheSizeMB int64  `mapstructure:"index_cache_mb"`
	}

	var storeOpts BadgerOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store options: %w", err)
	}
	if storeOpts.Path == "" {
		return nil, fmt.Errorf("badger metadata store: path is required")
	}

	store, err := metadataBadger.NewBadgerMetadataStore(ctx, metadataBadger.BadgerMetadataStoreConfig{
		DBPath:           storeOpts.Path,
		BlockCacheSizeMB: storeOpts.BlockCacheSizeMB,
		IndexCacheSizeMB: storeOpts.IndexCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}
	return store, nil
}

// CreateStoragePool builds a backend client for every configured storage node
// and returns the pool together with the node descriptor rows that seed the
// metadata store.
func CreateStoragePool(ctx context.Context, nodes []StorageNodeConfig) (*storage.Pool, []*metadata.Storage, error) {
	pool := storage.NewPool()
	descriptors := make([]*metadata.Storage, 0, len(nodes))

	for i := range nodes {
		node := &nodes[i]

		backend, err := createStorageBackend(ctx, node)
		if err != nil {
			return nil, nil, fmt.Errorf("storage %q: %w", node.ID, err)
		}
		pool.Add(node.ID, backend)

		descriptors = append(descriptors, &metadata.Storage{
			ID:       node.ID,
			URL:      node.URL,
			Token:    node.Token,
			Capacity: node.Capacity,
			Priority: node.Priority,
		})
	}

	return pool, descriptors, nil
}

// createStorageBackend creates one backend client from a node definition.
func createStorageBackend(ctx context.Context, node *StorageNodeConfig) (storage.Backend, error) {
	switch node.Type {
	case "http":
		return httpnode.NewClient(httpnode.Config{
			BaseURL: node.URL,
			Token:   node.Token,
			Timeout: node.Timeout,
		}), nil
	case "s3":
		return createS3Backend(ctx, node)
	default:
		return nil, fmt.Errorf("unknown storage node type: %q (supported: http, s3)", node.Type)
	}
}

// createS3Backend creates an S3 storage backend from the node's s3 section.
func createS3Backend(ctx context.Context, node *StorageNodeConfig) (storage.Backend, error) {
	type S3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var s3Opts S3Options
	if err := mapstructure.Decode(node.S3, &s3Opts); err != nil {
		return nil, fmt.Errorf("failed to decode s3 options: %w", err)
	}
	if s3Opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if s3Opts.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(s3Opts.Region))

	// Custom endpoint supports S3-compatible storage (MinIO, Localstack).
	if s3Opts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               s3Opts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if s3Opts.AccessKeyID != "" && s3Opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			s3Opts.AccessKeyID,
			s3Opts.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := s3Opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility.
		if s3Opts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	backend, err := s3node.NewS3Backend(ctx, s3node.S3BackendConfig{
		Client:    client,
		Bucket:    s3Opts.Bucket,
		KeyPrefix: s3Opts.KeyPrefix,
		Capacity:  node.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backend: %w", err)
	}

	logger.Info("S3 storage backend initialized: bucket=%s, region=%s, prefix=%s",
		s3Opts.Bucket, s3Opts.Region, s3Opts.KeyPrefix)
	return backend, nil
}
