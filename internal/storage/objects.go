package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultRegion = "us-east-1"

// ObjectStore talks to the bucket through its S3-compatible API.
type ObjectStore struct {
	client *s3.Client
	bucket string
}

// NewObjectStore creates a client for the bucket in opts. usePathStyle
// addresses the bucket in the URL path instead of the host name.
func NewObjectStore(ctx context.Context, opts Options, usePathStyle bool) (*ObjectStore, error) {
	if !opts.Configured() {
		return nil, ErrNotConfigured
	}
	region := opts.Region
	if region == "" {
		region = defaultRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.AccessKeySecret, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading object store config: %w", err)
	}

	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if !schemeRe.MatchString(endpoint) {
		endpoint = "https://" + endpoint
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = usePathStyle
	})
	return &ObjectStore{client: client, bucket: opts.Bucket}, nil
}

// Delete removes the object at key.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}
