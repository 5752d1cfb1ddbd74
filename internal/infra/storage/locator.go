// Package storage localiza os arquivos entregues pelos lead magnets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	infraconfig "github.com/xavierca1/ligue-lifecycle/internal/infra/config"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

var (
	_ usecase.AssetLocator = (*S3Locator)(nil)
	_ usecase.AssetLocator = (*StaticLocator)(nil)
)

// S3Locator hands out presigned GET URLs. Works with AWS S3 and any
// S3-compatible endpoint (MinIO, RustFS).
type S3Locator struct {
	presign *s3.PresignClient
	bucket  string
	prefix  string
	ttl     time.Duration
	logger  *zap.Logger
}

func NewS3Locator(ctx context.Context, cfg infraconfig.S3Config, logger *zap.Logger) (*S3Locator, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Locator{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		ttl:     ttl,
		logger:  logger.Named("s3"),
	}, nil
}

func (l *S3Locator) Locate(ctx context.Context, asset string) (string, error) {
	key := l.prefix + asset
	req, err := l.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(l.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	l.logger.Debug("presigned asset", zap.String("key", key), zap.Duration("ttl", l.ttl))
	return req.URL, nil
}

// StaticLocator serve os arquivos a partir de uma URL base (CDN ou site).
type StaticLocator struct {
	baseURL string
}

func NewStaticLocator(baseURL string) *StaticLocator {
	return &StaticLocator{baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *StaticLocator) Locate(_ context.Context, asset string) (string, error) {
	if l.baseURL == "" {
		return "", errors.New("asset base url not configured")
	}
	return l.baseURL + "/" + url.PathEscape(asset), nil
}
