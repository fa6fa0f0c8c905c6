package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"polybackup/internal/backup"
	"polybackup/internal/logging"
)

// S3Provider mirrors artifacts into an S3 bucket. Credentials come from the
// default AWS chain (environment, shared config, instance role); only the
// bucket layout is configured here.
type S3Provider struct {
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
	logger   *logging.Logger
}

// NewS3Provider creates an S3 replication provider for the configured
// bucket. A custom endpoint enables S3-compatible stores.
func NewS3Provider(config *backup.ReplicationConfig, logger *logging.Logger) (*S3Provider, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 replication bucket is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	awsConfig := &aws.Config{}
	if config.Region != "" {
		awsConfig.Region = aws.String(config.Region)
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Provider{
		uploader: s3manager.NewUploader(sess),
		bucket:   config.Bucket,
		prefix:   config.Prefix,
		logger:   logger,
	}, nil
}

// Name implements Provider.
func (p *S3Provider) Name() string { return "s3" }

// Replicate implements Provider. The uploader streams the file in parts, so
// large artifacts never load fully into memory.
func (p *S3Provider) Replicate(ctx context.Context, localPath, filename string) error {
	file, err := os.Open(filepath.Join(localPath, filename))
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	key := path.Join(p.prefix, filename)

	_, err = p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", p.bucket, key, err)
	}

	return nil
}

// ObjectKey reports where an artifact lands in the bucket, for logging and
// verification tooling.
func (p *S3Provider) ObjectKey(filename string) string {
	return path.Join(p.prefix, filename)
}
