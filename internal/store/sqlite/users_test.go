package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_InsertAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	created := seedUser(t, db, "alice")

	byName, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, "alice@example.com", byName.Email)
	assert.Equal(t, created.PasswordHash, byName.PasswordHash)
	assert.False(t, byName.CreatedAt.IsZero())

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)
}

func TestUserRepo_FindMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	u, err := repo.FindByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = repo.FindByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepo_UsernameIsCaseSensitive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	seedUser(t, db, "alice")

	u, err := repo.FindByUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Nil(t, u)

	seedUser(t, db, "Alice")
}

func TestUserRepo_DuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	seedUser(t, db, "alice")

	_, err := repo.Insert(ctx, &models.User{
		ID:           uuid.NewString(),
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDuplicateUsername)

	var count int
	require.NoError(t, db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = 'alice'`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUserRepo_ConcurrentInsertSameUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Insert(ctx, &models.User{
				ID:           uuid.NewString(),
				Username:     "racer",
				Email:        "racer@example.com",
				PasswordHash: "x",
				CreatedAt:    time.Now(),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrDuplicateUsername)
	}
	assert.Equal(t, 1, succeeded)
}

func TestDB_PingAndMaintain(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))
	assert.Equal(t, "sqlite", db.Name())
	// Migrating twice is a no-op.
	require.NoError(t, db.Migrate(ctx))
}

func TestDB_ClosedIsUnavailable(t *testing.T) {
	db, err := OpenMemory(context.Background(), "closed-db-test")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Close())

	_, err = db.Users().FindByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)

	err = db.Ping(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
}
