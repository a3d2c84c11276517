// Package respond writes JSON bodies and taxonomy-mapped error responses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the standard error response body.
type ErrorBody struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// JSON marshals v and writes it with the given status. If marshaling fails a
// bare 500 is written instead.
func JSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response body")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error","code":"INTERNAL"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// Error classifies err and writes the matching status and body. Server-side
// causes are never included in the body.
func Error(w http.ResponseWriter, err error) {
	body := ErrorBody{
		Error: apperr.Message(err),
		Code:  apperr.Code(err),
	}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		body.Details = verr.Details
	}
	JSON(w, apperr.HTTPStatus(err), body)
}
