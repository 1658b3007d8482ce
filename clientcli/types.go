package clientcli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	UploadType  string
	ContentType string // optional, auto-detect if empty
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath   string `json:"local_path"`
	Key         string `json:"key"`
	PublicURL   string `json:"public_url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
	Err         error  `json:"-"` // nil on success
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Paths []string
}

// DeleteResult represents the result of deleting a single file.
type DeleteResult struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// Image is an image record fetched from the server.
type Image struct {
	Data     string `json:"data"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
}

// Bytes decodes the base64 data URI into the raw image bytes.
func (i *Image) Bytes() ([]byte, error) {
	_, after, found := strings.Cut(i.Data, ";base64,")
	if !found {
		return nil, errors.New("not a base64 data URI")
	}
	decoded, err := base64.StdEncoding.DecodeString(after)
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	return decoded, nil
}

// uploadCredential mirrors the presigned POST credential issued by the server.
type uploadCredential struct {
	URL       string            `json:"url"`
	Fields    map[string]string `json:"fields"`
	PublicURL string            `json:"publicUrl"`
	Key       string            `json:"key"`
}
