package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/isdelr/diary-be/internal/store"
	"github.com/samber/oops"
)

var _ store.EntryStore = (*EntryRepo)(nil)

// EntryRepo is the PostgreSQL implementation of store.EntryStore.
type EntryRepo struct {
	pool DBTX
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(pool DBTX) *EntryRepo {
	return &EntryRepo{pool: pool}
}

func ownerNotFound(ownerID string) error {
	return oops.Code(apperr.CodeNotFound).
		With("user_id", ownerID).
		Wrap(fmt.Errorf("%w: owner does not exist", apperr.ErrNotFound))
}

// InsertEntry stores a diary entry.
func (r *EntryRepo) InsertEntry(ctx context.Context, entry *models.DiaryEntry) (*models.DiaryEntry, error) {
	if _, err := uuid.Parse(entry.UserID); err != nil {
		return nil, ownerNotFound(entry.UserID)
	}
	date, err := time.Parse(models.DateLayout, entry.EntryDate)
	if err != nil {
		return nil, apperr.Validation("date must be YYYY-MM-DD")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO diary_entries (
			id, user_id, entry_date, mood, weight, sleep_hours,
			exercise_duration, exercise_intensity, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.UserID, date, string(entry.Mood), entry.Weight, entry.SleepHours,
		entry.ExerciseDuration, string(entry.ExerciseIntensity), entry.Notes, entry.CreatedAt.UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ownerNotFound(entry.UserID)
		}
		return nil, unavailable(err, "insert diary entry")
	}
	return entry, nil
}

// ListEntries returns ownerID's entries, narrowed by filter.
func (r *EntryRepo) ListEntries(ctx context.Context, ownerID string, filter models.EntryFilter) ([]models.DiaryEntry, error) {
	entries := []models.DiaryEntry{}
	if _, err := uuid.Parse(ownerID); err != nil {
		return entries, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, entry_date, mood, weight, sleep_hours,
		       exercise_duration, exercise_intensity, notes, created_at
		FROM diary_entries
		WHERE user_id = $1`)
	args := []any{ownerID}

	if filter.From != "" {
		args = append(args, filter.From)
		fmt.Fprintf(&sb, ` AND entry_date >= $%d::date`, len(args))
	}
	if filter.To != "" {
		args = append(args, filter.To)
		fmt.Fprintf(&sb, ` AND entry_date <= $%d::date`, len(args))
	}
	sb.WriteString(` ORDER BY entry_date ASC, created_at ASC, id ASC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, unavailable(err, "list diary entries")
	}
	defer rows.Close()

	for rows.Next() {
		var e models.DiaryEntry
		var date time.Time
		var mood, intensity string
		if err := rows.Scan(&e.ID, &e.UserID, &date, &mood, &e.Weight, &e.SleepHours,
			&e.ExerciseDuration, &intensity, &e.Notes, &e.CreatedAt); err != nil {
			return nil, unavailable(err, "scan diary entry")
		}
		e.EntryDate = date.Format(models.DateLayout)
		e.Mood = models.Mood(mood)
		e.ExerciseIntensity = models.Intensity(intensity)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err, "iterate diary entries")
	}
	return entries, nil
}
