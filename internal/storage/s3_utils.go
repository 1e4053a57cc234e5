package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3ClientConfig struct {
	// Endpoint overrides the aws endpoint, e.g. a MinIO server.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func loadS3Config(ctx context.Context, cfg S3ClientConfig, creds aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*aws_config.LoadOptions) error{}

	if cfg.Region != "" {
		opts = append(opts, aws_config.WithRegion(cfg.Region))
	}
	if creds != nil {
		opts = append(opts, aws_config.WithCredentialsProvider(creds))
	}

	return aws_config.LoadDefaultConfig(ctx, opts...)
}

func newS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	var creds aws.CredentialsProvider
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	awsCfg, err := loadS3Config(ctx, cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	// Public buckets are readable without credentials, so fall back to
	// anonymous access when none can be found.
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		awsCfg, err = loadS3Config(ctx, cfg, aws.AnonymousCredentials{})
		if err != nil {
			return nil, fmt.Errorf("failed to create aws config with anonymous credentials: %w", err)
		}
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO needs path style addressing.
		o.UsePathStyle = true
	}), nil
}
