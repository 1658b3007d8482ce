package dayli

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Image is an inline image record: the payload lives as a data URI next to
// its metadata instead of in the object store. This is the one shared shape
// every backend and handler reads and writes.
type Image struct {
	ID        uuid.UUID
	UserID    string
	Filename  string
	MimeType  string
	DataURI   string
	Size      int64
	CreatedAt time.Time
}

// ImageRepo persists inline image records.
type ImageRepo interface {
	// Save stores a record, assigning its id and creation time.
	Save(ctx context.Context, img Image) (Image, error)
	// Get fetches a record by id; ErrNotFound when absent.
	Get(ctx context.Context, id uuid.UUID) (Image, error)
	// Delete removes a record owned by userID. A record owned by someone
	// else is ErrForbidden; a missing record is success.
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	// ListByUser returns a user's records, newest first.
	ListByUser(ctx context.Context, userID string) ([]Image, error)
}
