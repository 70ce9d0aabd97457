// Package storage is the blob store for scraped playlist CSVs.
//
// Every operation degrades instead of failing: errors are logged and turned into an empty list,
// an absent blob, or a false upload result. Callers decide what "absent" means for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/shared"
)

// BlobStore lists, fetches and uploads named blobs in a bucket.
type BlobStore interface {
	List(ctx context.Context, bucket string) []string
	Get(ctx context.Context, bucket, key string) ([]byte, bool)
	Put(ctx context.Context, bucket, localPath, key string) bool
}

// S3API is the subset of [s3.Client] used by [S3Store].
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store implements [BlobStore] on S3 or an S3-compatible service.
type S3Store struct {
	client S3API
	logger *log.Logger
}

// NewS3Store builds an S3 client from static credentials. A custom endpoint switches to path-style addressing.
func NewS3Store(ctx context.Context, cfg shared.StorageConfig, logger *log.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return NewS3StoreWithClient(client, logger), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API, logger *log.Logger) *S3Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &S3Store{client: client, logger: logger.With("component", "storage")}
}

// List returns every key in bucket, or an empty slice on error.
func (s *S3Store) List(ctx context.Context, bucket string) []string {
	keys := []string{}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("error listing objects", "bucket", bucket, "error", err)
			return []string{}
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys
}

// Get downloads key. The second result is false when the object could not be read.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, bool) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("error downloading object", "bucket", bucket, "key", key, "error", err)
		return nil, false
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		s.logger.Error("error reading object body", "bucket", bucket, "key", key, "error", err)
		return nil, false
	}

	return data, true
}

// Put uploads the file at localPath as key.
func (s *S3Store) Put(ctx context.Context, bucket, localPath, key string) bool {
	f, err := os.Open(localPath)
	if err != nil {
		s.logger.Error("error opening upload file", "path", localPath, "error", err)
		return false
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		var apiErr interface{ ErrorCode() string }
		if errors.As(err, &apiErr) {
			s.logger.Error("error creating object", "bucket", bucket, "key", key, "code", apiErr.ErrorCode(), "error", err)
		} else {
			s.logger.Error("unexpected error creating object", "bucket", bucket, "key", key, "error", err)
		}
		return false
	}

	s.logger.Info("object created", "bucket", bucket, "key", key)
	return true
}

func contentType(key string) string {
	if strings.HasSuffix(key, ".csv") {
		return "text/csv"
	}
	return "application/octet-stream"
}
