package dayli

import (
	"fmt"
	"strconv"
	"time"
)

// UploadType categorizes an upload. The type is the first segment of the
// object key and part of the credential scope issued by the gateway.
type UploadType string

const (
	UploadMemories        UploadType = "memories"
	UploadProfilePictures UploadType = "profile_pictures"
)

func (t UploadType) IsValid() bool {
	switch t {
	case UploadMemories, UploadProfilePictures:
		return true
	default:
		return false
	}
}

func ParseUploadType(s string) (UploadType, error) {
	t := UploadType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid upload type: %s (valid types: memories, profile_pictures): %w", s, ErrInvalidInput)
	}
	return t, nil
}

// Metadata header names stored with every uploaded object. The user id entry
// is the authorization record for later deletes; it is written server-side
// and never trusted from the client.
const (
	MetaUserID       = "x-amz-meta-user-id"
	MetaUploadType   = "x-amz-meta-upload-type"
	MetaOriginalName = "x-amz-meta-original-name"
	MetaTimestamp    = "x-amz-meta-timestamp"
)

// ObjectMetadata describes an uploaded object as recorded at upload time.
type ObjectMetadata struct {
	UserID       string
	UploadType   UploadType
	OriginalName string
	ContentType  string
	Size         int64
	UploadedAt   time.Time
}

// ToHeaders returns the metadata as x-amz-meta-* header values.
func (m ObjectMetadata) ToHeaders() map[string]string {
	h := map[string]string{
		MetaUserID:       m.UserID,
		MetaUploadType:   string(m.UploadType),
		MetaOriginalName: m.OriginalName,
	}
	if !m.UploadedAt.IsZero() {
		h[MetaTimestamp] = strconv.FormatInt(m.UploadedAt.UnixMilli(), 10)
	}
	return h
}

// MetadataFromHeaders rebuilds ObjectMetadata from x-amz-meta-* header
// values, as returned by a HEAD on the object.
func MetadataFromHeaders(h map[string]string, contentType string, size int64) ObjectMetadata {
	m := ObjectMetadata{
		UserID:       h[MetaUserID],
		UploadType:   UploadType(h[MetaUploadType]),
		OriginalName: h[MetaOriginalName],
		ContentType:  contentType,
		Size:         size,
	}
	if ts := h[MetaTimestamp]; ts != "" {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			m.UploadedAt = time.UnixMilli(ms).UTC()
		}
	}
	return m
}
