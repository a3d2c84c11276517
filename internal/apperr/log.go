package apperr

import (
	"github.com/rs/zerolog"
	"github.com/samber/oops"
)

// Log attaches err to a zerolog event. For oops errors the code and the
// structured context are added as separate fields.
func Log(event *zerolog.Event, err error) *zerolog.Event {
	event = event.Str(zerolog.ErrorFieldName, err.Error())
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil && code != "" {
			event = event.Interface("code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			event = event.Fields(ctx)
		}
	}
	return event
}
