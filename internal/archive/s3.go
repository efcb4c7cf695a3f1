// Package archive optionally copies finished conversions to S3 so the
// originals survive temp-file cleanup.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"convertly/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Archiver struct {
	uploader *s3manager.Uploader
	bucket   string
}

// NewS3Archiver builds an archiver from config, or nil when no bucket is
// configured.
func NewS3Archiver(cfg *config.Config) *S3Archiver {
	if cfg.S3Bucket == "" {
		return nil
	}

	awsCfg := &aws.Config{
		Region: aws.String(cfg.S3Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		),
	}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
	}
	if cfg.S3UsePathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess := session.Must(session.NewSession(awsCfg))

	return &S3Archiver{
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.S3Bucket,
	}
}

// Archive uploads the original and converted files under the conversion id.
func (a *S3Archiver) Archive(ctx context.Context, conversionID, inputPath, outputPath, contentType string) error {
	inputKey := fmt.Sprintf("conversions/%s/original%s", conversionID, filepath.Ext(inputPath))
	if err := a.upload(ctx, inputPath, inputKey, ""); err != nil {
		return err
	}

	outputKey := fmt.Sprintf("conversions/%s/converted%s", conversionID, filepath.Ext(outputPath))
	return a.upload(ctx, outputPath, outputKey, contentType)
}

func (a *S3Archiver) upload(ctx context.Context, localPath, key, contentType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	input := &s3manager.UploadInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := a.uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}
