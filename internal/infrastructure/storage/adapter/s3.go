package adapter

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"kala-setu/internal/infrastructure/storage/port"
)

// S3Options configures the S3 client. Endpoint switches to path-style
// addressing for S3-compatible stores (MinIO, Supabase storage, R2).
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

type S3Store struct {
	client    *s3.Client
	region    string
	publicURL string
}

// NewS3Store uses static credentials when given, the default AWS chain otherwise.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "s3: load config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, region: opts.Region, publicURL: publicBase(opts)}, nil
}

var _ port.ObjectStore = (*S3Store)(nil)

func (s *S3Store) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", errors.Wrapf(err, "s3: put %s/%s", bucket, key)
	}
	return key, nil
}

func (s *S3Store) PublicURL(bucket, key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, key)
}

func publicBase(opts S3Options) string {
	switch {
	case opts.PublicURL != "":
		return strings.TrimRight(opts.PublicURL, "/")
	case opts.Endpoint != "":
		return strings.TrimRight(opts.Endpoint, "/")
	}
	return ""
}
