package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/isdelr/diary-be/internal/store"
	"github.com/samber/oops"
)

// Compile-time interface satisfaction check.
var _ store.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of store.UserStore.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindByUsername looks a user up by exact username. Returns (nil, nil) when
// no user has that name.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`
	return r.findOne(ctx, query, username, "find user by username")
}

// FindByID looks a user up by id. Returns (nil, nil) when absent.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`
	return r.findOne(ctx, query, id, "find user by id")
}

func (r *UserRepo) findOne(ctx context.Context, query, arg, operation string) (*models.User, error) {
	var user models.User
	err := r.db.Reader.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err, operation)
	}
	return &user, nil
}

// Insert stores a new user. The unique index on username decides races
// between concurrent registrations.
func (r *UserRepo) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	const query = `INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	if err != nil {
		if classifyConstraint(err) == uniqueConstraint {
			return nil, oops.Code(apperr.CodeDuplicateUsername).
				With("username", user.Username).
				Wrap(fmt.Errorf("%w: %w", apperr.ErrDuplicateUsername, err))
		}
		return nil, unavailable(err, "insert user")
	}
	return user, nil
}
