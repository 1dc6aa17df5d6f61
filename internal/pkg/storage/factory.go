package storage

import (
	"context"
	"fmt"

	"github.com/xyz-asif/callboard/internal/config"
	"go.uber.org/zap"
)

// New builds the uploader selected by IMAGE_STORAGE
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Uploader, error) {
	switch cfg.ImageStorage {
	case "", "cloudinary":
		return NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryUploadFolder)
	case "minio":
		return NewMinIO(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL, cfg.MinIOPublicURL, logger)
	default:
		return nil, fmt.Errorf("unknown image storage %q", cfg.ImageStorage)
	}
}
