// Package sqlite implements the store contracts on an embedded SQLite
// database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/store"
	"github.com/samber/oops"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pragmas = "_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"

// DB provides dual reader/writer connections. The writer is limited to a
// single connection so writes serialise instead of failing with
// "database is locked".
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

var _ store.Backend = (*DB)(nil)

// Open opens the database file at path with WAL journaling and foreign keys
// enabled.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&%s", path, pragmas)
	return open(ctx, dsn, path)
}

// OpenMemory opens a named in-memory database shared by the reader and the
// writer pools. Distinct names give isolated databases.
func OpenMemory(ctx context.Context, name string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", name, pragmas)
	return open(ctx, dsn, ":memory:")
}

func open(ctx context.Context, dsn, path string) (*DB, error) {
	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := writer.PingContext(ctx); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := reader.PingContext(ctx); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader, path: path}, nil
}

// Users returns the user repository.
func (db *DB) Users() store.UserStore { return &UserRepo{db: db} }

// Entries returns the diary entry repository.
func (db *DB) Entries() store.EntryStore { return &EntryRepo{db: db} }

// Name identifies the engine.
func (db *DB) Name() string { return "sqlite" }

// Path is the database file, or ":memory:".
func (db *DB) Path() string { return db.path }

// Ping checks both pools.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Writer.PingContext(ctx); err != nil {
		return unavailable(err, "ping writer")
	}
	if err := db.Reader.PingContext(ctx); err != nil {
		return unavailable(err, "ping reader")
	}
	return nil
}

// Maintain asks SQLite to refresh query planner statistics and checkpoints
// the WAL.
func (db *DB) Maintain(ctx context.Context) error {
	if _, err := db.Writer.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return unavailable(err, "optimize")
	}
	if _, err := db.Writer.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return unavailable(err, "wal checkpoint")
	}
	return nil
}

// Close closes both reader and writer connections. Returns the first error encountered.
func (db *DB) Close() error {
	var firstErr error

	if err := db.Reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	return firstErr
}

// constraintKind classifies a constraint failure reported by SQLite.
type constraintKind int

const (
	notConstraint constraintKind = iota
	uniqueConstraint
	foreignKeyConstraint
	otherConstraint
)

func classifyConstraint(err error) constraintKind {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return notConstraint
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return uniqueConstraint
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return foreignKeyConstraint
	}
	if se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return notConstraint
	}
	// Primary result code only: fall back to the message.
	msg := se.Error()
	switch {
	case strings.Contains(msg, "UNIQUE"):
		return uniqueConstraint
	case strings.Contains(msg, "FOREIGN KEY"):
		return foreignKeyConstraint
	}
	return otherConstraint
}

func unavailable(err error, operation string) error {
	return oops.Code(apperr.CodeStorageUnavailable).
		With("backend", "sqlite").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", apperr.ErrStorageUnavailable, err))
}
