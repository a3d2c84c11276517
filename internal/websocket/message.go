package websocket

import (
	"encoding/json"

	"github.com/isdelr/diary-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Actions sent to stream clients.
const (
	ActionEntryCreated = "diary.entry.created"
	ActionError        = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

func encode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("action", msg.Action).Msg("Failed to encode websocket message")
		return nil
	}
	return data
}

// NewEntryCreatedMessage announces a newly stored entry.
func NewEntryCreatedMessage(entry models.DiaryEntry) []byte {
	return encode(Message{Action: ActionEntryCreated, Payload: entry})
}

// NewErrorMessage reports a problem with something the client sent.
func NewErrorMessage(text string) []byte {
	return encode(Message{Action: ActionError, Payload: map[string]string{"error": text}})
}
