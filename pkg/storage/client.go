// Package storage fetches images from S3.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
)

// ErrTooLarge is returned for objects over the download limit
var ErrTooLarge = stderrors.New("object exceeds size limit")

// ObjectAPI is the subset of the S3 client used here
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Client provides S3 storage operations
type Client struct {
	api    ObjectAPI
	bucket string
}

// NewClient creates a new S3 client. With anonymous set, requests are
// unsigned (public buckets); otherwise the default credential chain is used.
func NewClient(ctx context.Context, bucket, region string, anonymous bool) (*Client, error) {
	slog.Info("s3_client_init", "bucket", bucket, "region", region, "anonymous", anonymous)

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if anonymous {
		opts = append(opts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	slog.Info("s3_client_created", "bucket", bucket)

	return NewClientWithAPI(s3.NewFromConfig(cfg), bucket), nil
}

// NewClientWithAPI wraps an existing S3 API
func NewClientWithAPI(api ObjectAPI, bucket string) *Client {
	return &Client{api: api, bucket: bucket}
}

// DownloadResult contains download metadata
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Download copies an object to localPath, computing its SHA256. Objects
// larger than maxBytes are rejected without keeping a partial file.
func (c *Client) Download(ctx context.Context, key, localPath string, maxBytes int64) (*DownloadResult, error) {
	slog.Info("s3_download_start", "bucket", c.bucket, "s3_key", key)

	result, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "s3_key", key, "error", err)
		return nil, errors.Wrap(err, "failed to get object from S3")
	}
	defer result.Body.Close()

	if n := aws.ToInt64(result.ContentLength); maxBytes > 0 && n > maxBytes {
		slog.Error("s3_object_too_large", "s3_key", key, "size", n, "max_bytes", maxBytes)
		return nil, fmt.Errorf("%w: %s is %d bytes, max %d", ErrTooLarge, key, n, maxBytes)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create download dir")
	}

	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("local_file_creation_failed", "path", localPath, "error", err)
		return nil, errors.Wrap(err, "failed to create local file")
	}
	defer f.Close()

	body := io.Reader(result.Body)
	if maxBytes > 0 {
		body = io.LimitReader(result.Body, maxBytes+1)
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), body)
	if err != nil {
		os.Remove(localPath)
		slog.Error("s3_download_failed", "s3_key", key, "error", err)
		return nil, errors.Wrap(err, "failed to download file")
	}
	if maxBytes > 0 && size > maxBytes {
		os.Remove(localPath)
		slog.Error("s3_object_too_large", "s3_key", key, "max_bytes", maxBytes)
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, key, maxBytes)
	}

	checksum := hex.EncodeToString(hash.Sum(nil))

	slog.Info("s3_download_complete",
		"s3_key", key,
		"size_kb", size/1024,
		"local_path", localPath,
		"sha256", checksum[:16]+"...",
	)

	return &DownloadResult{
		LocalPath: localPath,
		SHA256:    checksum,
		Size:      size,
	}, nil
}
