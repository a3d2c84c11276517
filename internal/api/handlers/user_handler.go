package handlers

import (
	"net/http"

	"github.com/isdelr/diary-be/internal/api/respond"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/auth"
	"github.com/isdelr/diary-be/internal/services"
	"github.com/isdelr/diary-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// UserHandler handles registration, login and profile requests.
type UserHandler struct {
	service      services.UserServiceProvider
	cookieSecure bool
}

// NewUserHandler creates a new UserHandler. cookieSecure sets the Secure
// flag on the token cookie.
func NewUserHandler(service services.UserServiceProvider, cookieSecure bool) *UserHandler {
	return &UserHandler{service: service, cookieSecure: cookieSecure}
}

// RegisterResponse is the body of a successful registration.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload validation.Register
	if err := validation.Decode(r.Body, &payload); err != nil {
		respond.Error(w, err)
		return
	}

	userID, err := h.service.Register(r.Context(), payload.Username, payload.Password, payload.Email)
	if err != nil {
		event := log.Warn()
		if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
			event = log.Error()
		}
		apperr.Log(event, err).Str("username", payload.Username).Msg("Failed to register user")
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		UserID:  userID,
	})
}

// Login handles user authentication and token issuance. The token is
// returned in the body and set as an HttpOnly cookie.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload validation.Login
	if err := validation.Decode(r.Body, &payload); err != nil {
		respond.Error(w, err)
		return
	}

	session, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		event := log.Warn()
		if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
			event = log.Error()
		}
		apperr.Log(event, err).Str("username", payload.Username).Msg("Failed authentication attempt")
		respond.Error(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    session.Token,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	log.Info().Str("user_id", session.User.ID).Msg("User logged in")
	respond.JSON(w, http.StatusOK, session)
}

// Logout clears the token cookie. Tokens stay valid until they expire.
func (h *UserHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	w.WriteHeader(http.StatusNoContent)
}

// GetMe retrieves the currently authenticated user.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve identity from context")
		respond.Error(w, apperr.ErrMissingToken)
		return
	}

	user, err := h.service.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		apperr.Log(log.Warn(), err).Str("user_id", identity.UserID).Msg("User from token not found")
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, user)
}
