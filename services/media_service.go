package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Dosada05/sports-competitions/storage"
)

var ErrUploadsDisabled = errors.New("file uploads are not configured")

// MediaService stores images in object storage and returns their public URL.
type MediaService struct {
	uploader storage.FileUploader
	baseURL  string
	logger   *slog.Logger
}

// NewMediaService accepts a nil uploader; every upload then fails with
// ErrUploadsDisabled.
func NewMediaService(uploader storage.FileUploader, publicBaseURL string, logger *slog.Logger) *MediaService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaService{uploader: uploader, baseURL: publicBaseURL, logger: logger}
}

// ReplaceImage uploads a new image for the owner and deletes the previous
// one when it lives in the same bucket.
func (s *MediaService) ReplaceImage(ctx context.Context, kind, ownerID, contentType string, body io.Reader, previousURL *string) (string, error) {
	if s.uploader == nil {
		return "", ErrUploadsDisabled
	}
	key, err := storage.ImageKey(kind, ownerID, contentType)
	if err != nil {
		return "", err
	}
	result, err := s.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	if previousURL != nil {
		if oldKey := storage.KeyFromURL(s.baseURL, *previousURL); oldKey != "" && oldKey != key {
			if err := s.uploader.Delete(ctx, oldKey); err != nil {
				s.logger.Warn("failed to delete previous image", slog.String("key", oldKey), slog.Any("error", err))
			}
		}
	}
	return result.Location, nil
}
