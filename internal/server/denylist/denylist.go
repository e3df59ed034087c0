// Package denylist loads the common-password deny list at startup from an
// S3-compatible bucket, an HTTP(S) URL or a local file.
package denylist

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/netx"
	"github.com/dmitrijs2005/authkeeper/internal/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
)

// ObjectGetter is the part of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// seams for tests
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Client builds an S3 client from the server config. Static credentials
// are used when S3RootUser is set; a base endpoint switches to path-style
// addressing for MinIO-like servers.
func NewS3Client(ctx context.Context, cfg *config.Config) (ObjectGetter, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3RootUser != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3RootUser, cfg.S3RootPassword, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	return newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// FetchS3 reads and parses the deny list stored at bucket/key.
func FetchS3(ctx context.Context, client ObjectGetter, bucket, key string) ([]string, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	list, err := password.ParseDenyList(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return list, nil
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// FetchURL downloads and parses the deny list at url.
func FetchURL(ctx context.Context, client *http.Client, url string) ([]string, error) {
	body, err := netx.Fetch(ctx, client, url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return password.ParseDenyList(bytes.NewReader(body))
}

// Load returns the configured deny list, or nil when none is configured so
// the built-in list applies.
func Load(ctx context.Context, cfg *config.Config, l logging.Logger) ([]string, error) {
	log := l.With("module", "denylist")

	switch {
	case cfg.UseS3DenyList():
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		list, err := FetchS3(ctx, client, cfg.S3Bucket, cfg.DenyListS3Key)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "deny list loaded", "source", "s3", "bucket", cfg.S3Bucket, "key", cfg.DenyListS3Key, "entries", len(list))
		return list, nil

	case cfg.DenyListURL != "":
		list, err := FetchURL(ctx, httpClient, cfg.DenyListURL)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "deny list loaded", "source", "url", "url", cfg.DenyListURL, "entries", len(list))
		return list, nil

	case cfg.DenyListPath != "":
		list, err := password.LoadDenyListFile(cfg.DenyListPath)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "deny list loaded", "source", "file", "path", cfg.DenyListPath, "entries", len(list))
		return list, nil

	default:
		log.Debug(ctx, "using built-in deny list")
		return nil, nil
	}
}
