package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/metrics"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/isdelr/diary-be/internal/store"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

// MaxListLimit caps the limit accepted by ListEntries.
const MaxListLimit = 1000

// DiaryServiceProvider defines the interface for diary services.
type DiaryServiceProvider interface {
	CreateEntry(ctx context.Context, ownerID string, in EntryInput) (*models.DiaryEntry, error)
	ListEntries(ctx context.Context, ownerID string, filter models.EntryFilter) ([]models.DiaryEntry, error)
}

// EntryPublisher receives every stored entry, keyed by its owner.
type EntryPublisher interface {
	Publish(ownerID string, entry models.DiaryEntry)
}

// EntryInput is the caller-supplied part of a diary entry. It has no owner
// field; the owner always comes from the authenticated identity.
type EntryInput struct {
	Date              string
	Mood              models.Mood
	Weight            float64
	SleepHours        float64
	ExerciseDuration  float64
	ExerciseIntensity models.Intensity
	Notes             string
}

// Validate reports every problem with in.
func (in EntryInput) Validate() error {
	var details []string
	if _, err := time.Parse(models.DateLayout, in.Date); err != nil {
		details = append(details, "date: must be a calendar date in YYYY-MM-DD form")
	}
	if !in.Mood.Valid() {
		details = append(details, fmt.Sprintf("mood: must be one of %v", models.Moods))
	}
	if !in.ExerciseIntensity.Valid() {
		details = append(details, fmt.Sprintf("exerciseIntensity: must be one of %v", models.Intensities))
	}
	if in.Weight < 0 {
		details = append(details, "weight: must not be negative")
	}
	if in.SleepHours < 0 || in.SleepHours > 24 {
		details = append(details, "sleep: must be between 0 and 24")
	}
	if in.ExerciseDuration < 0 {
		details = append(details, "exerciseDuration: must not be negative")
	}
	if len(details) > 0 {
		return apperr.Validation(details...)
	}
	return nil
}

// DiaryService provides business logic for owner-scoped diary entries.
type DiaryService struct {
	users     store.UserStore
	entries   store.EntryStore
	publisher EntryPublisher
	sanitizer *bluemonday.Policy
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewDiaryService creates a new DiaryService. publisher and m may be nil.
func NewDiaryService(users store.UserStore, entries store.EntryStore, publisher EntryPublisher, m *metrics.Metrics) *DiaryService {
	return &DiaryService{
		users:     users,
		entries:   entries,
		publisher: publisher,
		sanitizer: bluemonday.StrictPolicy(),
		metrics:   m,
		now:       time.Now,
	}
}

// sanitizeNotes strips all markup and returns plain text.
func (s *DiaryService) sanitizeNotes(notes string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(notes)))
}

// CreateEntry stores a new entry owned by ownerID.
func (s *DiaryService) CreateEntry(ctx context.Context, ownerID string, in EntryInput) (*models.DiaryEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, oops.Code(apperr.CodeNotFound).
			With("user_id", ownerID).
			Wrap(fmt.Errorf("%w: user not found", apperr.ErrNotFound))
	}

	entry := &models.DiaryEntry{
		ID:                uuid.New().String(),
		UserID:            owner.ID,
		EntryDate:         in.Date,
		Mood:              in.Mood,
		Weight:            in.Weight,
		SleepHours:        in.SleepHours,
		ExerciseDuration:  in.ExerciseDuration,
		ExerciseIntensity: in.ExerciseIntensity,
		Notes:             s.sanitizeNotes(in.Notes),
		CreatedAt:         s.now().UTC(),
	}

	stored, err := s.entries.InsertEntry(ctx, entry)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEntryCreated()
	if s.publisher != nil {
		s.publisher.Publish(stored.UserID, *stored)
	}
	log.Debug().Str("user_id", stored.UserID).Str("entry_id", stored.ID).Msg("Diary entry created")
	return stored, nil
}

// ListEntries returns ownerID's entries narrowed by filter.
func (s *DiaryService) ListEntries(ctx context.Context, ownerID string, filter models.EntryFilter) ([]models.DiaryEntry, error) {
	var details []string
	var from, to time.Time
	var err error
	if filter.From != "" {
		if from, err = time.Parse(models.DateLayout, filter.From); err != nil {
			details = append(details, "from: must be a calendar date in YYYY-MM-DD form")
		}
	}
	if filter.To != "" {
		if to, err = time.Parse(models.DateLayout, filter.To); err != nil {
			details = append(details, "to: must be a calendar date in YYYY-MM-DD form")
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		details = append(details, "to: must not be before from")
	}
	if filter.Limit < 0 || filter.Limit > MaxListLimit {
		details = append(details, fmt.Sprintf("limit: must be between 0 and %d", MaxListLimit))
	}
	if len(details) > 0 {
		return nil, apperr.Validation(details...)
	}

	return s.entries.ListEntries(ctx, ownerID, filter)
}
