// Package s3 stores objects in S3 or any S3-compatible server such as MinIO.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/iamsyg/artisian-dashboard/internal/storage"
)

// Config holds the connection settings of the S3 driver.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	// PublicBaseURL overrides the URL prefix of stored objects, for example a
	// CDN in front of the bucket. The bucket name is appended to it.
	PublicBaseURL string
}

// Store hands out buckets sharing one S3 client.
type Store struct {
	client  *awss3.Client
	cfg     Config
	baseURL string
}

// New loads AWS configuration and creates the S3 client.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsConfig, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{client: client, cfg: cfg, baseURL: publicBase(cfg)}, nil
}

// Bucket returns a handle on the named bucket.
func (s *Store) Bucket(name string) *Bucket {
	return &Bucket{client: s.client, name: name, baseURL: s.bucketURL(name)}
}

// Ping checks that the bucket is reachable with the configured credentials.
func (s *Store) Ping(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", bucket, err)
	}
	return nil
}

func publicBase(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/")
	default:
		return ""
	}
}

func (s *Store) bucketURL(name string) string {
	if s.baseURL == "" {
		if s.cfg.UsePathStyle {
			return fmt.Sprintf("https://s3.%s.amazonaws.com/%s", s.cfg.Region, name)
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", name, s.cfg.Region)
	}
	return s.baseURL + "/" + name
}

// Bucket implements storage.Bucket for one S3 bucket.
type Bucket struct {
	client  *awss3.Client
	name    string
	baseURL string
}

var _ storage.Bucket = (*Bucket)(nil)

// Upload puts the object. Without Upsert the write is conditioned on the key
// being free, and a taken key yields storage.ErrObjectExists.
func (b *Bucket) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}

	put := &awss3.PutObjectInput{
		Bucket:        aws.String(b.name),
		Key:           aws.String(input.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if input.ContentType != "" {
		put.ContentType = aws.String(input.ContentType)
	}
	if !input.Upsert {
		put.IfNoneMatch = aws.String("*")
	}

	if _, err := b.client.PutObject(ctx, put); err != nil {
		if apiErrorCode(err) == "PreconditionFailed" {
			return nil, fmt.Errorf("%s/%s: %w", b.name, input.Key, storage.ErrObjectExists)
		}
		return nil, fmt.Errorf("put %s/%s: %w", b.name, input.Key, err)
	}

	return &storage.UploadResult{Key: input.Key, URL: b.PublicURL(input.Key)}, nil
}

// Delete removes key from the bucket.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		if code := apiErrorCode(err); code == "NoSuchKey" || code == "NotFound" {
			return nil
		}
		return fmt.Errorf("delete %s/%s: %w", b.name, key, err)
	}
	return nil
}

// PublicURL returns the object URL with each path segment escaped.
func (b *Bucket) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return b.baseURL + "/" + strings.Join(segments, "/")
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
