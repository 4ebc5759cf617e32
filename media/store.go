package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

// Store hands out time-limited URLs for objects in the media bucket
type Store interface {
	// PresignGet returns a read-only URL for key that expires after ttl
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// PresignPut returns an upload URL for key restricted to contentType
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}

// R2Options configures an S3-compatible bucket
type R2Options struct {
	Endpoint  string // e.g. https://<account>.r2.cloudflarestorage.com, empty for AWS
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// R2Store implements Store on top of the S3 presign client
type R2Store struct {
	bucket    string
	presigner *s3.PresignClient
}

// NewR2Store creates a store for the configured bucket
func NewR2Store(opts R2Options) (*R2Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("media.store: bucket name is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, errors.New("media.store: access key and secret key are required")
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	awsCfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	log.Infof("media.store: Initialized R2Store for bucket %s", opts.Bucket)
	return &R2Store{
		bucket:    opts.Bucket,
		presigner: s3.NewPresignClient(client),
	}, nil
}

func (s *R2Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("media.store: empty object key")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("media.store: presign get %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *R2Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("media.store: empty object key")
	}
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("media.store: presign put %s: %w", key, err)
	}
	return req.URL, nil
}
