package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/diary-be/internal/api/respond"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/auth"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/isdelr/diary-be/internal/services"
	"github.com/isdelr/diary-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// DiaryHandler handles diary entry requests. The owner of every entry is
// the authenticated caller; no owner is ever read from the request.
type DiaryHandler struct {
	service services.DiaryServiceProvider
}

// NewDiaryHandler creates a new DiaryHandler.
func NewDiaryHandler(service services.DiaryServiceProvider) *DiaryHandler {
	return &DiaryHandler{service: service}
}

// Create stores a new entry for the caller.
func (h *DiaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, apperr.ErrMissingToken)
		return
	}

	var payload validation.Entry
	if err := validation.Decode(r.Body, &payload); err != nil {
		respond.Error(w, err)
		return
	}

	entry, err := h.service.CreateEntry(r.Context(), identity.UserID, services.EntryInput{
		Date:              payload.Date,
		Mood:              payload.Mood,
		Weight:            payload.Weight,
		SleepHours:        payload.Sleep,
		ExerciseDuration:  payload.ExerciseDuration,
		ExerciseIntensity: payload.ExerciseIntensity,
		Notes:             payload.Content,
	})
	if err != nil {
		apperr.Log(log.Warn(), err).Str("user_id", identity.UserID).Msg("Failed to create diary entry")
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, entry)
}

// History lists the caller's entries, optionally narrowed with the from,
// to and limit query parameters.
func (h *DiaryHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, apperr.ErrMissingToken)
		return
	}

	q := r.URL.Query()
	filter := models.EntryFilter{From: q.Get("from"), To: q.Get("to")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(w, apperr.Validation("limit: must be an integer"))
			return
		}
		filter.Limit = limit
	}

	entries, err := h.service.ListEntries(r.Context(), identity.UserID, filter)
	if err != nil {
		apperr.Log(log.Warn(), err).Str("user_id", identity.UserID).Msg("Failed to list diary entries")
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, entries)
}
