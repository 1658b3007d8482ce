// Package localstore is the fallback blob store. Blobs are kept as data
// URIs in a SQLite table, so a deployment with no reachable object store
// still accepts uploads; references it hands out use the local:// scheme.
package localstore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dayli-app/dayli"

	_ "modernc.org/sqlite" // SQLite driver
)

const blobTable = "fallback_blobs"

// Blob is a stored fallback object as served to clients: the payload stays
// in data-URI form so it can be embedded directly.
type Blob struct {
	ID          string
	DataURI     string
	ContentType string
	Filename    string
	Size        int64
	UserID      string
	UploadType  dayli.UploadType
	CreatedAt   time.Time
}

// Store persists fallback blobs in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Connect opens the SQLite database at dsn and ensures the blob table
// exists. Use ":memory:" for throwaway stores.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT NOT NULL PRIMARY KEY,
			data_uri TEXT NOT NULL,
			content_type TEXT NOT NULL,
			filename TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			upload_type TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`, blobTable)
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	indexSQL := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_user ON %s (user_id, created_at)`, blobTable, blobTable)
	if _, err := db.ExecContext(ctx, indexSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a blob and returns its local:// reference. The id embeds the
// upload type and a timestamp plus random disambiguator, mirroring the key
// shape of the remote store.
func (s *Store) Put(ctx context.Context, meta dayli.ObjectMetadata, data []byte) (string, error) {
	if !meta.UploadType.IsValid() {
		return "", fmt.Errorf("put blob: %w: bad upload type %q", dayli.ErrInvalidInput, meta.UploadType)
	}
	if meta.UserID == "" {
		return "", fmt.Errorf("put blob: %w: user id cannot be empty", dayli.ErrInvalidInput)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("put blob: %w: empty payload", dayli.ErrInvalidInput)
	}

	now := s.now().UTC()
	id := fmt.Sprintf("%s_%d_%s",
		meta.UploadType,
		now.UnixMilli(),
		strings.Split(uuid.NewString(), "-")[0],
	)
	dataURI := EncodeDataURI(meta.ContentType, data)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data_uri, content_type, filename, size_bytes, user_id, upload_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, blobTable)
	_, err := s.db.ExecContext(ctx, query,
		id, dataURI, meta.ContentType, meta.OriginalName, int64(len(data)),
		meta.UserID, string(meta.UploadType), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("put blob: %w", err)
	}

	return dayli.LocalReference(id), nil
}

// Get fetches a blob by id.
func (s *Store) Get(ctx context.Context, id string) (Blob, error) {
	query := fmt.Sprintf(`
		SELECT id, data_uri, content_type, filename, size_bytes, user_id, upload_type, created_at
		FROM %s
		WHERE id = ?
	`, blobTable)

	var b Blob
	var uploadType, createdAt string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.DataURI, &b.ContentType, &b.Filename, &b.Size, &b.UserID, &uploadType, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Blob{}, fmt.Errorf("get blob %q: %w", id, dayli.ErrNotFound)
		}
		return Blob{}, fmt.Errorf("get blob %q: %w", id, err)
	}

	b.UploadType = dayli.UploadType(uploadType)
	b.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Blob{}, fmt.Errorf("get blob %q: parse created_at: %w", id, err)
	}

	return b, nil
}

// Stat returns a blob's metadata without its payload. This is the ownership
// lookup for delete authorization on local references.
func (s *Store) Stat(ctx context.Context, id string) (dayli.ObjectMetadata, error) {
	query := fmt.Sprintf(`
		SELECT filename, content_type, size_bytes, user_id, upload_type, created_at
		FROM %s
		WHERE id = ?
	`, blobTable)

	var m dayli.ObjectMetadata
	var uploadType, createdAt string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.OriginalName, &m.ContentType, &m.Size, &m.UserID, &uploadType, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dayli.ObjectMetadata{}, fmt.Errorf("stat blob %q: %w", id, dayli.ErrNotFound)
		}
		return dayli.ObjectMetadata{}, fmt.Errorf("stat blob %q: %w", id, err)
	}

	m.UploadType = dayli.UploadType(uploadType)
	m.UploadedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return m, nil
}

// Remove deletes a blob. A missing id is success, matching the remote
// store's delete semantics.
func (s *Store) Remove(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, blobTable)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("remove blob %q: %w", id, err)
	}
	return nil
}

// EncodeDataURI renders a payload as a base64 data URI.
func EncodeDataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a data URI back into its content type and payload.
func DecodeDataURI(uri string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data uri: %w", dayli.ErrInvalidInput)
	}

	header, payload, found := strings.Cut(rest, ",")
	if !found || !strings.HasSuffix(header, ";base64") {
		return "", nil, fmt.Errorf("unsupported data uri encoding: %w", dayli.ErrInvalidInput)
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data uri: %w: %v", dayli.ErrInvalidInput, err)
	}

	return strings.TrimSuffix(header, ";base64"), data, nil
}
