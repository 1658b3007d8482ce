package gateway

import (
	"fmt"
	"path"
	"strings"

	"github.com/dayli-app/dayli"
)

// allowedMIMETypes is the full set of image types the gateway accepts.
var allowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
}

// extensionMIME maps allowed filename extensions to the MIME type each must
// declare. The declared type and the extension are cross-checked both ways
// so a renamed file cannot smuggle a different type through.
var extensionMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// validateUpload checks the declared file name, MIME type, and upload type
// against the allow-lists.
func validateUpload(fileName, contentType string, uploadType dayli.UploadType) error {
	if fileName == "" {
		return fmt.Errorf("file name is required: %w", dayli.ErrInvalidInput)
	}
	if !uploadType.IsValid() {
		return fmt.Errorf("unknown upload type %q: %w", uploadType, dayli.ErrInvalidInput)
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := allowedMIMETypes[contentType]; !ok {
		return fmt.Errorf("content type %q is not an allowed image type: %w", contentType, dayli.ErrInvalidInput)
	}

	ext := strings.ToLower(path.Ext(dayli.SanitizeFilename(fileName)))
	expected, ok := extensionMIME[ext]
	if !ok {
		return fmt.Errorf("file extension %q is not allowed: %w", ext, dayli.ErrInvalidInput)
	}
	if expected != contentType {
		return fmt.Errorf("extension %q does not match content type %q: %w", ext, contentType, dayli.ErrInvalidInput)
	}

	return nil
}
