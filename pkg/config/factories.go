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

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metadata/badger"
	"github.com/marmos91/dittodrive/pkg/metadata/memory"
	"github.com/marmos91/dittodrive/pkg/physical"
	physicalFs "github.com/marmos91/dittodrive/pkg/physical/fs"
	physicalS3 "github.com/marmos91/dittodrive/pkg/physical/s3"
)

// CreateMetadataStore creates a metadata store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": in-memory store, lost on restart (development and tests)
//   - "badger": embedded BadgerDB store (persistent single-node deployments)
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewMemoryStore(), nil
	case "badger":
		return createBadgerMetadataStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}
}

// createBadgerMetadataStore creates a BadgerDB-backed metadata store.
func createBadgerMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	type BadgerStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg BadgerStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("badger metadata store: path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store, err := badger.NewBadgerStore(storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}

	return store, nil
}

// CreatePhysicalStore creates a physical store based on configuration.
//
// Supported types:
//   - "filesystem": pkg/physical/fs (local filesystem storage)
//   - "s3": pkg/physical/s3 (Amazon S3 or compatible storage)
func CreatePhysicalStore(ctx context.Context, cfg *PhysicalConfig) (physical.Store, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemPhysicalStore(ctx, cfg.Filesystem)
	case "s3":
		return createS3PhysicalStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown physical store type: %q", cfg.Type)
	}
}

// createFilesystemPhysicalStore creates a filesystem-based physical store.
func createFilesystemPhysicalStore(ctx context.Context, options map[string]any) (physical.Store, error) {
	type FilesystemStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem physical store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem physical store: path is required")
	}

	store, err := physicalFs.NewFSStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem physical store: %w", err)
	}

	return store, nil
}

// createS3PhysicalStore creates an S3-based physical store.
func createS3PhysicalStore(ctx context.Context, options map[string]any) (physical.Store, error) {
	type S3StoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3StoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 physical store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 physical store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 physical store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint for MinIO, Localstack, etc.
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Retry harder than the AWS default of 3: uploads and deletes should
	// ride out transient 5xx responses.
	maxRetries := storeCfg.MaxRetries
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
		// Path-style addressing for compatibility with MinIO/Localstack
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := physicalS3.NewS3Store(ctx, physicalS3.S3StoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 physical store: %w", err)
	}

	return store, nil
}
