package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds the S3-compatible blob store settings. Endpoint may point
// at Cloudflare R2 or any other S3-compatible service.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	CDNBaseURL      string
}

// VideoStore uploads challenge videos to an S3-compatible bucket and
// returns public CDN URLs.
type VideoStore struct {
	client *s3.Client
	bucket string
	cdn    string
}

func NewVideoStore(ctx context.Context, cfg Config) (*VideoStore, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		))
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		opts = append(opts, awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint}, nil
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	cdn := strings.TrimSuffix(cfg.CDNBaseURL, "/")
	if cdn == "" {
		cdn = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &VideoStore{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		cdn:    cdn,
	}, nil
}

// Upload streams the video to the bucket and returns its public URL.
// progress is reported at start, after the transfer, and on failure.
func (v *VideoStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string, progress func(percent int)) (string, error) {
	if progress == nil {
		progress = func(int) {}
	}
	progress(0)

	_, err := v.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		progress(0)
		return "", fmt.Errorf("upload video: %w", err)
	}

	progress(100)
	return v.cdn + "/" + key, nil
}
