// Package s3 provides the object storage client the state backend
// operations use. It speaks the S3 wire protocol against any compatible
// endpoint: AWS itself, Hetzner Object Storage, or a MinIO-style server.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Config carries the connection settings for one object storage endpoint.
type Config struct {
	// Endpoint is the base URL, e.g. https://fsn1.your-objectstorage.com.
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	// UsePathStyle addresses buckets as <endpoint>/<bucket> instead of
	// <bucket>.<endpoint>. Needed for MinIO-style endpoints; Hetzner and
	// AWS use virtual-hosted style.
	UsePathStyle bool
}

// Client is a bucket-and-object client bound to one endpoint and region.
type Client struct {
	s3       *s3.Client
	region   string
	endpoint string
}

// NewClient creates a client for the given endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("object storage endpoint is required")
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Client{s3: client, region: cfg.Region, endpoint: cfg.Endpoint}, nil
}

// Endpoint returns the endpoint this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// EnsureBucket creates the bucket if it does not exist yet and applies the
// versioning setting. Safe to call repeatedly.
func (c *Client) EnsureBucket(ctx context.Context, name string, versioning bool) error {
	if err := c.CreateBucket(ctx, name); err != nil {
		return err
	}
	if !versioning {
		return nil
	}
	return c.EnableVersioning(ctx, name)
}

// CreateBucket creates a bucket. A bucket that already exists and is owned
// by the caller is not an error.
func (c *Client) CreateBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(name),
	}
	// Everything except us-east-1 needs the location constraint on real
	// AWS; compatible endpoints ignore it.
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.s3.CreateBucket(ctx, input); err != nil {
		if isBucketOwned(err) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return nil
}

// BucketExists reports whether the bucket exists and is accessible.
func (c *Client) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check bucket %s: %w", name, err)
	}
	return true, nil
}

// EnableVersioning turns object versioning on for the bucket.
func (c *Client) EnableVersioning(ctx context.Context, name string) error {
	_, err := c.s3.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(name),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable versioning on bucket %s: %w", name, err)
	}
	return nil
}

// DeleteBucket deletes an empty bucket.
func (c *Client) DeleteBucket(ctx context.Context, name string) error {
	if _, err := c.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(name),
	}); err != nil {
		return fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	return nil
}

// ListObjects lists object keys under prefix, following pagination.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var keys []string
	pager := s3.NewListObjectsV2Paginator(c.s3, input)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// PutObject uploads data under key.
func (c *Client) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s in bucket %s: %w", key, bucket, err)
	}
	return nil
}

// GetObject downloads the object under key.
func (c *Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s from bucket %s: %w", key, bucket, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// DeleteObject deletes the object under key.
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", key, bucket, err)
	}
	return nil
}

// errorCode extracts the API error code from an SDK error chain, or "".
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// isBucketOwned reports whether err means the bucket already exists. Typed
// SDK errors are checked first; compatible services that return bare codes
// fall through to the string match.
func isBucketOwned(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return true
	}
	switch errorCode(err) {
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return true
	}
	return false
}

// isNotFound reports whether err means the bucket or object is absent.
func isNotFound(err error) bool {
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return true
	}
	switch errorCode(err) {
	case "NotFound", "NoSuchBucket", "404":
		return true
	}
	return false
}
