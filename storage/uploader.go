package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// MaxImageSize ограничивает размер логотипов и аватаров.
const MaxImageSize = 5 << 20

var ErrUnsupportedImage = errors.New("unsupported image type")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Owner kinds used as the first segment of object keys.
const (
	KindUserAvatar      = "users"
	KindTeamLogo        = "teams"
	KindCompetitionLogo = "competitions"
)

// ImageKey builds a fresh object key "<kind>/<ownerID>/<uuid><ext>" for an
// image of the given content type.
func ImageKey(kind, ownerID, contentType string) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, contentType)
	}
	return path.Join(kind, ownerID, uuid.NewString()+ext), nil
}

// KeyFromURL recovers the object key from a public URL produced by
// GetPublicURL. It returns "" for URLs outside baseURL.
func KeyFromURL(baseURL, publicURL string) string {
	base := strings.TrimSuffix(baseURL, "/") + "/"
	if baseURL == "" || !strings.HasPrefix(publicURL, base) {
		return ""
	}
	return strings.TrimPrefix(publicURL, base)
}
