package storage

import (
	"bytes"
	"context"
	"fmt"

	"meetsync/core/config"
	"meetsync/core/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStorage stores generated artifacts (meeting .ics files)
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type s3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Storage(cfg config.S3Config) ObjectStorage {
	client := s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &s3Storage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
	}
}

// Upload puts an object and returns its public URL
func (s *s3Storage) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		logger.Error("S3Storage:Upload:Error:", err)
		return "", err
	}

	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}
