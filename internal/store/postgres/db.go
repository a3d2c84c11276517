// Package postgres implements the store contracts on PostgreSQL through a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/store"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DBTX is the subset of *pgxpool.Pool the repositories use. pgxmock pools
// satisfy it in unit tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// ConnectAttempts bounds how often Open retries the initial ping.
const ConnectAttempts = 5

// DB is a PostgreSQL backend.
type DB struct {
	pool  DBTX
	url   string
	close func()
}

var _ store.Backend = (*DB)(nil)

// Open connects to the database at url. The first ping is retried with
// exponential backoff so the server can start alongside its database.
func Open(ctx context.Context, url string) (*DB, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	backoff := retry.WithMaxRetries(ConnectAttempts-1, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Postgres not reachable yet, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &DB{pool: pool, url: url, close: pool.Close}, nil
}

// New wraps an existing pool. url is only needed for Migrate.
func New(pool DBTX, url string) *DB {
	return &DB{pool: pool, url: url}
}

// Users returns the user repository.
func (db *DB) Users() store.UserStore { return NewUserRepo(db.pool) }

// Entries returns the diary entry repository.
func (db *DB) Entries() store.EntryStore { return NewEntryRepo(db.pool) }

// Name identifies the engine.
func (db *DB) Name() string { return "postgres" }

// Ping checks that the database answers.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return unavailable(err, "ping")
	}
	return nil
}

// Maintain refreshes planner statistics.
func (db *DB) Maintain(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, `ANALYZE users, diary_entries`); err != nil {
		return unavailable(err, "analyze")
	}
	return nil
}

// Close releases the pool.
func (db *DB) Close() error {
	if db.close != nil {
		db.close()
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool { return pgCode(err) == pgerrcode.UniqueViolation }

func isForeignKeyViolation(err error) bool { return pgCode(err) == pgerrcode.ForeignKeyViolation }

func unavailable(err error, operation string) error {
	return oops.Code(apperr.CodeStorageUnavailable).
		With("backend", "postgres").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", apperr.ErrStorageUnavailable, err))
}
