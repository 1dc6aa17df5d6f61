package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary stores call images on Cloudinary
type Cloudinary struct {
	cld          *cloudinary.Cloudinary
	uploadFolder string
}

// NewCloudinary creates a new Cloudinary uploader
func NewCloudinary(cloudName, apiKey, apiSecret, uploadFolder string) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials are required")
	}

	cloudinaryURL := fmt.Sprintf("cloudinary://%s:%s@%s", apiKey, apiSecret, cloudName)

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	if uploadFolder == "" {
		uploadFolder = "callboard"
	}

	return &Cloudinary{
		cld:          cld,
		uploadFolder: uploadFolder,
	}, nil
}

// Upload sends the image to the "<folder>/calls" folder and returns its secure URL
func (s *Cloudinary) Upload(ctx context.Context, img Image) (string, error) {
	uploadParams := uploader.UploadParams{
		Folder:       s.uploadFolder + "/calls",
		ResourceType: "image",
	}

	result, err := s.cld.Upload.Upload(ctx, img.Reader, uploadParams)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}

	return result.SecureURL, nil
}
