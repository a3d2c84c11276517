package auth

import (
	"net/http"
	"strings"

	"github.com/isdelr/diary-be/internal/api/respond"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

// TokenCookieName is the cookie set at login and accepted as a fallback to
// the Authorization header.
const TokenCookieName = "token"

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Middleware creates a middleware for protecting routes. It performs no
// persistence: a request either leaves with an Identity in its context or is
// rejected with 401.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractToken(r)
			if tokenStr == "" {
				err := oops.Code(apperr.CodeMissingToken).With("path", r.URL.Path).Wrap(apperr.ErrMissingToken)
				apperr.Log(log.Debug(), err).Msg("Rejected request without auth token")
				respond.Error(w, err)
				return
			}

			userID, err := verifier.Verify(tokenStr)
			if err != nil {
				apperr.Log(log.Info(), err).Str("path", r.URL.Path).Msg("Rejected auth token")
				respond.Error(w, err)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: userID})
			log.Debug().Str("user_id", userID).Msg("Authenticated request")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads a Bearer Authorization header, then the token cookie.
// Headers with any other scheme are ignored.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, found := strings.Cut(authHeader, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}

	cookie, err := r.Cookie(TokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
