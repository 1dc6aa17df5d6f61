package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIO stores call images in an S3-compatible bucket
type MinIO struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *zap.Logger
}

// NewMinIO connects to the endpoint and makes sure the bucket exists.
// publicURL overrides the base of returned links (e.g. a CDN in front of the bucket).
func NewMinIO(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, publicURL string, logger *zap.Logger) (*MinIO, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to make bucket %s: %w", bucket, err)
		}
		logger.Info("created image bucket", zap.String("bucket", bucket))
	}

	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}

	return &MinIO{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}, nil
}

func (s *MinIO) Upload(ctx context.Context, img Image) (string, error) {
	key := objectKey(img.Filename)

	size := img.Size
	if size <= 0 {
		size = -1
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, img.Reader, size, minio.PutObjectOptions{
		ContentType: img.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}

	s.logger.Debug("image stored", zap.String("bucket", info.Bucket), zap.String("key", info.Key), zap.Int64("size", info.Size))

	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
}

func objectKey(filename string) string {
	return fmt.Sprintf("calls/%s%s", uuid.NewString(), getFileExtension(filepath.Base(filename)))
}
