// Package postgres implements the image repo using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dayli-app/dayli"
)

const imagesTable = "images"

// Repo persists inline image records in PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo ensures the images table exists and returns the repo. The pool
// stays owned by the caller.
func NewRepo(ctx context.Context, pool *pgxpool.Pool) (*Repo, error) {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			data_uri TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, imagesTable)
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	indexSQL := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_user_created ON %s (user_id, created_at)`,
		imagesTable, imagesTable)
	if _, err := pool.Exec(ctx, indexSQL); err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &Repo{pool: pool}, nil
}

// Ping verifies database connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Save(ctx context.Context, img dayli.Image) (dayli.Image, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, filename, mime_type, data_uri, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, imagesTable)

	img.ID = uuid.New()
	err := r.pool.QueryRow(ctx, query,
		img.ID, img.UserID, img.Filename, img.MimeType, img.DataURI, img.Size,
	).Scan(&img.CreatedAt)
	if err != nil {
		return dayli.Image{}, fmt.Errorf("save image: %w", err)
	}

	return img, nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (dayli.Image, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, mime_type, data_uri, size_bytes, created_at
		FROM %s
		WHERE id = $1
	`, imagesTable)

	var img dayli.Image
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&img.ID, &img.UserID, &img.Filename, &img.MimeType, &img.DataURI, &img.Size, &img.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dayli.Image{}, fmt.Errorf("get image: %w", dayli.ErrNotFound)
		}
		return dayli.Image{}, fmt.Errorf("get image: %w", err)
	}

	return img, nil
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	var owner string
	ownerQuery := fmt.Sprintf(`SELECT user_id FROM %s WHERE id = $1`, imagesTable)
	err := r.pool.QueryRow(ctx, ownerQuery, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already gone; delete converges to success.
			return nil
		}
		return fmt.Errorf("delete image: %w", err)
	}

	if owner != userID {
		return fmt.Errorf("delete image: record not owned by caller: %w", dayli.ErrForbidden)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, imagesTable)
	if _, err := r.pool.Exec(ctx, query, id, userID); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]dayli.Image, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, mime_type, data_uri, size_bytes, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, imagesTable)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []dayli.Image
	for rows.Next() {
		var img dayli.Image
		if scanErr := rows.Scan(&img.ID, &img.UserID, &img.Filename, &img.MimeType, &img.DataURI, &img.Size, &img.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("list images: scan: %w", scanErr)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list images: rows: %w", err)
	}
	return images, nil
}
