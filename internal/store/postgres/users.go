package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/isdelr/diary-be/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

var _ store.UserStore = (*UserRepo)(nil)

// UserRepo is the PostgreSQL implementation of store.UserStore.
type UserRepo struct {
	pool DBTX
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool DBTX) *UserRepo {
	return &UserRepo{pool: pool}
}

// FindByUsername looks a user up by exact username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`,
		username, "find user by username")
}

// FindByID looks a user up by id. Ids that are not UUIDs cannot exist and
// yield (nil, nil) without a round trip.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.findOne(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`,
		id, "find user by id")
}

func (r *UserRepo) findOne(ctx context.Context, query, arg, operation string) (*models.User, error) {
	var user models.User
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err, operation)
	}
	return &user, nil
}

// Insert stores a new user. The users_username_key constraint decides races
// between concurrent registrations.
func (r *UserRepo) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code(apperr.CodeDuplicateUsername).
				With("username", user.Username).
				Wrap(fmt.Errorf("%w: %w", apperr.ErrDuplicateUsername, err))
		}
		return nil, unavailable(err, "insert user")
	}
	return user, nil
}
