package audio

import (
	"fmt"
	"path/filepath"
	"strings"

	"parley/internal/services"
)

// DefaultMaxUploadBytes caps accepted source files at 500 MiB.
const DefaultMaxUploadBytes int64 = 500 * 1024 * 1024

var allowedExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".m4a":  {},
	".flac": {},
}

// AllowedExtensions lists accepted source extensions.
func AllowedExtensions() []string {
	return []string{".mp3", ".wav", ".m4a", ".flac"}
}

// ValidateUpload checks the file name extension and size. maxBytes <= 0
// applies DefaultMaxUploadBytes.
func ValidateUpload(name string, size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return services.Wrap(services.ErrValidation, "audio", "validate", fmt.Sprintf("%s has no extension; allowed: %s", name, strings.Join(AllowedExtensions(), ", ")), nil)
	}
	if _, ok := allowedExtensions[ext]; !ok {
		return services.Wrap(services.ErrValidation, "audio", "validate", fmt.Sprintf("unsupported format %s; allowed: %s", ext, strings.Join(AllowedExtensions(), ", ")), nil)
	}
	if size <= 0 {
		return services.Wrap(services.ErrValidation, "audio", "validate", name+" is empty", nil)
	}
	if size > maxBytes {
		return services.Wrap(services.ErrValidation, "audio", "validate", fmt.Sprintf("%s is %d bytes, limit is %d", name, size, maxBytes), nil)
	}
	return nil
}
