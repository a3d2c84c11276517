// Package store declares the persistence contracts for users and diary
// entries. Implementations live in the sqlite and postgres subpackages.
//
// Lookups return (nil, nil) when nothing matches; absence is not an error.
// Underlying I/O faults are reported as apperr.ErrStorageUnavailable.
package store

import (
	"context"

	"github.com/isdelr/diary-be/internal/models"
)

// UserStore persists user records. Username matching is exact and
// case-sensitive.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)

	// Insert stores user. A username that is already taken yields
	// apperr.ErrDuplicateUsername, including when a concurrent insert won
	// the race.
	Insert(ctx context.Context, user *models.User) (*models.User, error)
}

// EntryStore persists diary entries.
type EntryStore interface {
	// InsertEntry stores entry. An owner that does not exist yields
	// apperr.ErrNotFound.
	InsertEntry(ctx context.Context, entry *models.DiaryEntry) (*models.DiaryEntry, error)

	// ListEntries returns the entries owned by ownerID, oldest entry date
	// first. Entries of other owners are never returned.
	ListEntries(ctx context.Context, ownerID string, filter models.EntryFilter) ([]models.DiaryEntry, error)
}

// Backend is an opened storage engine.
type Backend interface {
	Users() UserStore
	Entries() EntryStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Migrate applies all pending schema migrations.
	Migrate(ctx context.Context) error

	// Maintain runs routine housekeeping such as refreshing planner statistics.
	Maintain(ctx context.Context) error

	// Name identifies the engine in logs and metrics.
	Name() string

	Close() error
}
