// Package database opens the storage backend named by a connection URL.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/isdelr/diary-be/internal/store"
	"github.com/isdelr/diary-be/internal/store/postgres"
	"github.com/isdelr/diary-be/internal/store/sqlite"
	"github.com/rs/zerolog/log"
)

// Kind names a supported storage engine.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// Parse splits a connection URL into the engine it selects and the string
// that engine's driver expects. Accepted forms are sqlite://path,
// file:path, a bare file path, :memory:, and postgres:// or postgresql://
// URLs.
func Parse(url string) (Kind, string, error) {
	switch {
	case url == "":
		return "", "", fmt.Errorf("empty database url")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return KindPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		return KindSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	case strings.HasPrefix(url, "file:"):
		return KindSQLite, strings.TrimPrefix(url, "file:"), nil
	case strings.Contains(url, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme in %q", url)
	default:
		return KindSQLite, url, nil
	}
}

// New opens the backend selected by url. It does not run migrations.
func New(ctx context.Context, url string) (store.Backend, error) {
	kind, dsn, err := Parse(url)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindPostgres:
		db, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Connected to PostgreSQL")
		return db, nil
	default:
		if dsn == "" {
			return nil, fmt.Errorf("sqlite url %q has no path", url)
		}
		var db *sqlite.DB
		if dsn == ":memory:" {
			db, err = sqlite.OpenMemory(ctx, "diary")
		} else {
			db, err = sqlite.Open(ctx, dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
		}
		log.Info().Str("path", dsn).Msg("Opened SQLite database")
		return db, nil
	}
}

// Migrate applies pending migrations to backend.
func Migrate(ctx context.Context, backend store.Backend) error {
	if err := backend.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate %s: %w", backend.Name(), err)
	}
	log.Info().Str("backend", backend.Name()).Msg("Database migrations applied")
	return nil
}
