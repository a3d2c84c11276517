package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/samber/oops"
)

// DefaultIssuer is the iss claim written into every token.
const DefaultIssuer = "diary-be"

// Claims defines the JWT claims structure.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies access tokens with a single HMAC key. The key is
// supplied once at startup and never changes for the life of the Issuer.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	name   string
	now    func() time.Time
}

// NewIssuer creates an Issuer. An empty secret is rejected.
func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, oops.Code("AUTH_NO_SECRET").Errorf("token signing secret is empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("AUTH_INVALID_TTL").With("ttl", ttl.String()).Errorf("token ttl must be positive")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Issuer{secret: key, ttl: ttl, name: DefaultIssuer, now: time.Now}, nil
}

// WithClock returns a copy of the Issuer that reads the current instant from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue creates a signed token bound to userID, returning it with its expiry.
func (i *Issuer) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").Errorf("user id is empty")
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").With("user_id", userID).Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify parses tokenStr and returns the user id it is bound to. An elapsed
// expiry yields apperr.ErrExpiredToken; every other failure, including a bad
// signature or an unexpected algorithm, yields apperr.ErrInvalidToken.
func (i *Issuer) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", oops.Code(apperr.CodeExpiredToken).Wrap(apperr.ErrExpiredToken)
		}
		return "", oops.Code(apperr.CodeInvalidToken).With("reason", err.Error()).Wrap(apperr.ErrInvalidToken)
	}
	if !token.Valid || claims.UserID == "" || claims.UserID != claims.Subject {
		return "", oops.Code(apperr.CodeInvalidToken).Wrap(apperr.ErrInvalidToken)
	}
	return claims.UserID, nil
}
