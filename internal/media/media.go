// Package media stores uploaded images. Clients send images as base64 data
// URIs; decoded bytes land under the media directory with uuid names so
// uploads never collide and the reference is safe to embed in URLs.
package media

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"foodgram/internal/apperr"
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store writes image payloads beneath a base directory.
type Store struct {
	dir string
}

// NewStore creates the base directory if needed.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("media directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SaveDataURI decodes a "data:image/...;base64,..." payload into subdir and
// returns the stored reference (subdir-relative path). Malformed payloads are
// validation errors, not infrastructure failures.
func (s *Store) SaveDataURI(subdir, dataURI string) (string, error) {
	mediaType, payload, ok := splitDataURI(dataURI)
	if !ok {
		return "", apperr.Validation("image", "must be a base64 data URI")
	}

	ext, known := extensions[mediaType]
	if !known {
		return "", apperr.Validation("image", fmt.Sprintf("unsupported media type %q", mediaType))
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", apperr.Validation("image", "invalid base64 payload")
	}
	if len(raw) == 0 {
		return "", apperr.Validation("image", "empty image payload")
	}

	name := uuid.NewString() + ext
	if err := os.MkdirAll(filepath.Join(s.dir, subdir), 0o755); err != nil {
		return "", fmt.Errorf("create media subdirectory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, subdir, name), raw, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return filepath.ToSlash(filepath.Join(subdir, name)), nil
}

// Remove deletes a stored reference. A missing file is not an error: the
// reference is already gone.
func (s *Store) Remove(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	clean := filepath.Clean(ref)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return apperr.Validation("image", "invalid media reference")
	}
	if err := os.Remove(filepath.Join(s.dir, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

func splitDataURI(dataURI string) (mediaType, payload string, ok bool) {
	trimmed := strings.TrimSpace(dataURI)
	if !strings.HasPrefix(trimmed, "data:") {
		return "", "", false
	}
	head, body, found := strings.Cut(trimmed[len("data:"):], ",")
	if !found {
		return "", "", false
	}
	mediaType, encoding, found := strings.Cut(head, ";")
	if !found || encoding != "base64" {
		return "", "", false
	}
	return mediaType, body, true
}
