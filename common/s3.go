package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const rawContentPrefix = "raw/"

// ArchiveConfig configures the raw-content archive bucket. Region is
// optional and falls back to the standard AWS config chain.
type ArchiveConfig struct {
	Bucket string
	Region string
	// UsePathStyle forces path-style addressing for S3-compatible providers.
	UsePathStyle bool
}

// Archive stores raw extracted text in S3 so items can be reprocessed
// later without refetching the source.
type Archive struct {
	client *s3.Client
	bucket string
}

// NewArchive creates an archive over the configured bucket using the
// default AWS credential chain.
func NewArchive(ctx context.Context, cfg ArchiveConfig) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	log.Printf("✅ Raw-content archive ready (bucket: %s)", cfg.Bucket)
	return &Archive{client: client, bucket: cfg.Bucket}, nil
}

// Archive uploads the raw text for a content ID.
func (a *Archive) Archive(ctx context.Context, contentID string, raw []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(rawContentPrefix + contentID),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive raw content for %s: %w", contentID, err)
	}
	return nil
}

// Retrieve returns the archived raw text for a content ID.
func (a *Archive) Retrieve(ctx context.Context, contentID string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(rawContentPrefix + contentID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve raw content for %s: %w", contentID, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// Exists reports whether raw content was archived for a content ID.
func (a *Archive) Exists(ctx context.Context, contentID string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(rawContentPrefix + contentID),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}

	return false, err
}
