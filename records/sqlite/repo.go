// Package sqlite implements the image repo using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dayli-app/dayli"

	_ "modernc.org/sqlite" // SQLite driver
)

const imagesTable = "images"

// Repo persists inline image records in SQLite.
type Repo struct {
	db *sql.DB
}

// Connect opens the SQLite database at dsn and ensures the images table
// exists.
func Connect(ctx context.Context, dsn string) (*Repo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &Repo{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT NOT NULL PRIMARY KEY,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			data_uri TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`, imagesTable)
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	indexSQL := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_user_created ON %s (user_id, created_at)`,
		imagesTable, imagesTable)
	if _, err := db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Save(ctx context.Context, img dayli.Image) (dayli.Image, error) {
	img.ID = uuid.New()
	img.CreatedAt = time.Now().UTC()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, filename, mime_type, data_uri, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, imagesTable)
	_, err := r.db.ExecContext(ctx, query,
		img.ID.String(), img.UserID, img.Filename, img.MimeType, img.DataURI,
		img.Size, img.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return dayli.Image{}, fmt.Errorf("save image: %w", err)
	}

	return img, nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (dayli.Image, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, mime_type, data_uri, size_bytes, created_at
		FROM %s
		WHERE id = ?
	`, imagesTable)

	var img dayli.Image
	var idStr, createdAt string
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr, &img.UserID, &img.Filename, &img.MimeType, &img.DataURI, &img.Size, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dayli.Image{}, fmt.Errorf("get image: %w", dayli.ErrNotFound)
		}
		return dayli.Image{}, fmt.Errorf("get image: %w", err)
	}

	img.ID, err = uuid.Parse(idStr)
	if err != nil {
		return dayli.Image{}, fmt.Errorf("get image: parse uuid: %w", err)
	}

	img.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return dayli.Image{}, fmt.Errorf("get image: parse created_at: %w", err)
	}

	return img, nil
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	// Ownership goes into the WHERE clause, so the existence check and the
	// owner check are one statement.
	var owner string
	ownerQuery := fmt.Sprintf(`SELECT user_id FROM %s WHERE id = ?`, imagesTable)
	err := r.db.QueryRowContext(ctx, ownerQuery, id.String()).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already gone; delete converges to success.
			return nil
		}
		return fmt.Errorf("delete image: %w", err)
	}

	if owner != userID {
		return fmt.Errorf("delete image: record not owned by caller: %w", dayli.ErrForbidden)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, imagesTable)
	if _, err := r.db.ExecContext(ctx, query, id.String(), userID); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]dayli.Image, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, mime_type, data_uri, size_bytes, created_at
		FROM %s
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, imagesTable)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var images []dayli.Image
	for rows.Next() {
		var img dayli.Image
		var idStr, createdAt string
		if scanErr := rows.Scan(&idStr, &img.UserID, &img.Filename, &img.MimeType, &img.DataURI, &img.Size, &createdAt); scanErr != nil {
			return nil, fmt.Errorf("list images: scan: %w", scanErr)
		}

		img.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("list images: parse uuid: %w", err)
		}
		img.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("list images: parse created_at: %w", err)
		}

		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list images: rows: %w", err)
	}
	return images, nil
}
