// Package records provides a unified interface for connecting to inline
// image record backends.
//
// Two backends are supported: PostgreSQL (pgx connection pool) for
// production, and SQLite (modernc.org/sqlite) for development and
// single-node deployments. Connect opens the connection, runs migrations,
// and returns a ready-to-use repo.
package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dayli-app/dayli"
	"github.com/dayli-app/dayli/records/postgres"
	"github.com/dayli-app/dayli/records/sqlite"
)

// Config holds the configuration for connecting to a records backend.
type Config struct {
	// Type specifies the backend: "sqlite" or "postgres"
	Type string `mapstructure:"type"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn"`
}

// Connect establishes a connection to the configured records backend, runs
// migrations, and returns an ImageRepo. The returned cleanup function closes
// the connection.
func Connect(ctx context.Context, cfg Config) (dayli.ImageRepo, func(), error) {
	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg.DSN)
	case "postgres":
		return connectPostgres(ctx, cfg.DSN)
	default:
		return nil, nil, fmt.Errorf("unsupported records backend: %s", cfg.Type)
	}
}

func connectSQLite(ctx context.Context, dsn string) (dayli.ImageRepo, func(), error) {
	repo, err := sqlite.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect sqlite records: %w", err)
	}
	return repo, func() { _ = repo.Close() }, nil
}

func connectPostgres(ctx context.Context, dsn string) (dayli.ImageRepo, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres records: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres records: %w", err)
	}

	repo, err := postgres.NewRepo(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres records: %w", err)
	}

	return repo, pool.Close, nil
}
