package sqlite

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// A unique name derived from t.Name() ensures isolation between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenMemory(context.Background(), url.PathEscape(t.Name()))
	require.NoError(t, err, "open test db")

	require.NoError(t, db.Migrate(context.Background()), "run migrations")

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func seedUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()
	u, err := db.Users().Insert(context.Background(), &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$fakehashfakehashfakehu",
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return u
}

func newEntry(ownerID, date string) *models.DiaryEntry {
	return &models.DiaryEntry{
		ID:                uuid.NewString(),
		UserID:            ownerID,
		EntryDate:         date,
		Mood:              models.MoodGood,
		Weight:            70,
		SleepHours:        8,
		ExerciseDuration:  30,
		ExerciseIntensity: models.IntensityLight,
		Notes:             "ok",
		CreatedAt:         time.Now().UTC(),
	}
}
