package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/auth"
	"github.com/isdelr/diary-be/internal/metrics"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/isdelr/diary-be/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, password, email string) (string, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// TokenIssuer mints access tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// UserService provides registration, login and profile lookups.
type UserService struct {
	users   store.UserStore
	hasher  auth.PasswordHasher
	issuer  TokenIssuer
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewUserService creates a new UserService. m may be nil.
func NewUserService(users store.UserStore, hasher auth.PasswordHasher, issuer TokenIssuer, m *metrics.Metrics) *UserService {
	return &UserService{
		users:   users,
		hasher:  hasher,
		issuer:  issuer,
		metrics: m,
		now:     time.Now,
	}
}

func duplicateUsername(username string) error {
	return oops.Code(apperr.CodeDuplicateUsername).
		With("username", username).
		Wrap(apperr.ErrDuplicateUsername)
}

func hasControl(s string) bool {
	return strings.ContainsFunc(s, unicode.IsControl)
}

func invalidCredentials() error {
	return oops.Code(apperr.CodeInvalidCredentials).Wrap(apperr.ErrInvalidCredentials)
}

// Register creates an account and returns its id. The username is stored
// with surrounding whitespace removed; the password is hashed as given.
func (s *UserService) Register(ctx context.Context, username, password, email string) (string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	var details []string
	switch {
	case username == "":
		details = append(details, "username: must not be empty")
	case hasControl(username):
		details = append(details, "username: must not contain control characters")
	}
	switch {
	case strings.TrimSpace(password) == "":
		details = append(details, "password: must not be empty")
	case len(password) > auth.MaxPasswordBytes:
		details = append(details, fmt.Sprintf("password: must be at most %d bytes", auth.MaxPasswordBytes))
	}
	if hasControl(email) {
		details = append(details, "email: must not contain control characters")
	}
	if len(details) > 0 {
		s.metrics.RecordRegistration(metrics.ResultInvalid)
		return "", apperr.Validation(details...)
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.metrics.RecordRegistration(metrics.ResultError)
		return "", err
	}
	if existing != nil {
		s.metrics.RecordRegistration(metrics.ResultDuplicate)
		return "", duplicateUsername(username)
	}

	digest, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		s.metrics.RecordRegistration(metrics.ResultInvalid)
		return "", apperr.Validation(fmt.Sprintf("password: must be at most %d bytes", auth.MaxPasswordBytes))
	}
	if err != nil {
		s.metrics.RecordRegistration(metrics.ResultError)
		return "", oops.Code(apperr.CodeInternal).Wrapf(err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    s.now().UTC(),
	}
	if _, err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrDuplicateUsername) {
			s.metrics.RecordRegistration(metrics.ResultDuplicate)
			return "", err
		}
		s.metrics.RecordRegistration(metrics.ResultError)
		return "", err
	}

	s.metrics.RecordRegistration(metrics.ResultSuccess)
	log.Info().Str("user_id", user.ID).Msg("User registered")
	return user.ID, nil
}

// Login checks credentials and issues a token. Unknown usernames and wrong
// passwords fail with the same error after the same amount of hashing work.
func (s *UserService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		s.metrics.RecordLogin(metrics.ResultInvalid)
		return nil, apperr.Validation("username and password are required")
	}

	// No account can carry control characters, so skip the lookup.
	if hasControl(username) {
		s.hasher.VerifyDummy(password)
		s.metrics.RecordLogin(metrics.ResultRejected)
		return nil, invalidCredentials()
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultError)
		return nil, err
	}
	if user == nil {
		s.hasher.VerifyDummy(password)
		s.metrics.RecordLogin(metrics.ResultRejected)
		return nil, invalidCredentials()
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.RecordLogin(metrics.ResultRejected)
		return nil, invalidCredentials()
	}

	token, expiresAt, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultError)
		return nil, oops.Code(apperr.CodeInternal).With("user_id", user.ID).Wrapf(err, "issue token")
	}

	s.metrics.RecordLogin(metrics.ResultSuccess)
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, oops.Code(apperr.CodeNotFound).
			With("user_id", id).
			Wrap(apperr.ErrNotFound)
	}
	return user, nil
}
