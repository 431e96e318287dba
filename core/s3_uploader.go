package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of the S3 API the uploader needs.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader publishes written workbooks and read results.
type S3Uploader struct {
	Client S3Client
	Bucket string
	Prefix string
}

func NewS3Uploader(cfg aws.Config, bucket, prefix string) *S3Uploader {
	return &S3Uploader{Client: s3.NewFromConfig(cfg), Bucket: bucket, Prefix: prefix}
}

// Key joins the prefix and a relative path with forward slashes.
func (u *S3Uploader) Key(rel string) string {
	return strings.TrimPrefix(path.Join(u.Prefix, filepath.ToSlash(rel)), "/")
}

// UploadFile uploads one file under key.
func (u *S3Uploader) UploadFile(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer file.Close()

	slog.Info("uploading to s3", "local", localPath, "bucket", u.Bucket, "key", key)
	_, err = u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}
	return nil
}
