package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/agrimech/manuals-qa/internal/config"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Archive keeps the raw uploaded manual documents so they can be re-processed
// or audited later. Write-only from this service.
type Archive interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
}

type S3Archive struct {
	uploader *s3manager.Uploader
	cfg      *config.Config
}

func NewS3Archive(cfg *config.Config) *S3Archive {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.S3Region),
		Credentials:      credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}

	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
	}

	sess := session.Must(session.NewSession(awsConfig))

	return &S3Archive{
		uploader: s3manager.NewUploader(sess),
		cfg:      cfg,
	}
}

func (s *S3Archive) Put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.cfg.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}
