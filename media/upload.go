package media

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// media kinds accepted for a check-in
const (
	TypeImage = "image"
	TypeVideo = "video"
)

// MaxUploadBytes is the largest check-in upload accepted
const MaxUploadBytes int64 = 50 * 1024 * 1024

var allowedContentTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"video/mp4":       "mp4",
	"video/quicktime": "mov",
	"video/webm":      "webm",
}

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file exceeds 50MB limit")
	ErrMissingFileName = errors.New("missing file name")
)

// IsValidMediaType reports whether t is a known check-in media kind
func IsValidMediaType(t string) bool {
	return t == TypeImage || t == TypeVideo
}

// ValidateUpload checks an upload request before a URL is issued
func ValidateUpload(fileName, contentType string, sizeBytes int64) error {
	if _, ok := allowedContentTypes[contentType]; !ok {
		return ErrUnsupportedType
	}
	if sizeBytes > MaxUploadBytes {
		return ErrFileTooLarge
	}
	if fileName == "" {
		return ErrMissingFileName
	}
	return nil
}

// BuildUploadKey returns a fresh object key under the user's upload prefix
func BuildUploadKey(userID, contentType string) (string, error) {
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	return fmt.Sprintf("uploads/%s/%s.%s", userID, uuid.NewString(), ext), nil
}
