package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/isdelr/diary-be/internal/store"
	"github.com/samber/oops"
)

// Compile-time interface satisfaction check.
var _ store.EntryStore = (*EntryRepo)(nil)

// EntryRepo is the SQLite implementation of store.EntryStore.
type EntryRepo struct {
	db *DB
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(db *DB) *EntryRepo {
	return &EntryRepo{db: db}
}

// InsertEntry stores a diary entry. The foreign key on user_id rejects
// entries whose owner does not exist.
func (r *EntryRepo) InsertEntry(ctx context.Context, entry *models.DiaryEntry) (*models.DiaryEntry, error) {
	const query = `
		INSERT INTO diary_entries (
			id, user_id, entry_date, mood, weight, sleep_hours,
			exercise_duration, exercise_intensity, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.EntryDate, string(entry.Mood), entry.Weight, entry.SleepHours,
		entry.ExerciseDuration, string(entry.ExerciseIntensity), entry.Notes, entry.CreatedAt.UTC())
	if err != nil {
		if classifyConstraint(err) == foreignKeyConstraint {
			return nil, oops.Code(apperr.CodeNotFound).
				With("user_id", entry.UserID).
				Wrap(fmt.Errorf("%w: owner does not exist", apperr.ErrNotFound))
		}
		return nil, unavailable(err, "insert diary entry")
	}
	return entry, nil
}

// ListEntries returns ownerID's entries, narrowed by filter.
func (r *EntryRepo) ListEntries(ctx context.Context, ownerID string, filter models.EntryFilter) ([]models.DiaryEntry, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, entry_date, mood, weight, sleep_hours,
		       exercise_duration, exercise_intensity, notes, created_at
		FROM diary_entries
		WHERE user_id = ?`)
	args := []any{ownerID}

	if filter.From != "" {
		sb.WriteString(` AND entry_date >= ?`)
		args = append(args, filter.From)
	}
	if filter.To != "" {
		sb.WriteString(` AND entry_date <= ?`)
		args = append(args, filter.To)
	}
	sb.WriteString(` ORDER BY entry_date ASC, created_at ASC, id ASC`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Reader.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, unavailable(err, "list diary entries")
	}
	defer rows.Close()

	entries := []models.DiaryEntry{}
	for rows.Next() {
		var e models.DiaryEntry
		var mood, intensity string
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntryDate, &mood, &e.Weight, &e.SleepHours,
			&e.ExerciseDuration, &intensity, &e.Notes, &e.CreatedAt); err != nil {
			return nil, unavailable(err, "scan diary entry")
		}
		e.Mood = models.Mood(mood)
		e.ExerciseIntensity = models.Intensity(intensity)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err, "iterate diary entries")
	}
	return entries, nil
}
