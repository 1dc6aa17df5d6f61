package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// Image is one uploaded file waiting to be stored
type Image struct {
	Reader      io.Reader
	Filename    string
	Size        int64
	ContentType string
}

// Uploader turns an image blob into a public URL
type Uploader interface {
	Upload(ctx context.Context, img Image) (string, error)
}

// File validation constants
var (
	AllowedImageTypes = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

	MaxImageSize = int64(10 * 1024 * 1024) // 10MB
)

// ValidateImageFile validates an image file upload
func ValidateImageFile(header *multipart.FileHeader) error {
	if header.Size > MaxImageSize {
		return fmt.Errorf("image file size exceeds maximum allowed size of %d MB", MaxImageSize/(1024*1024))
	}

	ext := getFileExtension(header.Filename)
	if !isAllowedExtension(ext, AllowedImageTypes) {
		return fmt.Errorf("invalid image file type: %s. Allowed types: %s", ext, strings.Join(AllowedImageTypes, ", "))
	}

	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("invalid image content type: %s", ct)
	}

	return nil
}

// FromHeaders opens every part after validating it. The returned closer
// releases all opened files.
func FromHeaders(headers []*multipart.FileHeader) ([]Image, func(), error) {
	images := make([]Image, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, h := range headers {
		if err := ValidateImageFile(h); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		files = append(files, f)
		images = append(images, Image{
			Reader:      f,
			Filename:    h.Filename,
			Size:        h.Size,
			ContentType: h.Header.Get("Content-Type"),
		})
	}

	return images, closeAll, nil
}

// getFileExtension returns the lowercase file extension including the dot
func getFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// isAllowedExtension checks if the extension is in the allowed list
func isAllowedExtension(ext string, allowedTypes []string) bool {
	for _, allowed := range allowedTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}
