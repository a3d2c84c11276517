// Package apperr defines the error taxonomy shared by the stores, services and
// HTTP layer. Callers classify errors with errors.Is against the sentinels;
// the oops codes and context attached on the way up are for logs only.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingToken       = errors.New("missing auth token")
	ErrInvalidToken       = errors.New("invalid auth token")
	ErrExpiredToken       = errors.New("auth token expired")
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Codes attached with oops.Code. They also appear in error response bodies.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeDuplicateUsername  = "DUPLICATE_USERNAME"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeExpiredToken       = "EXPIRED_TOKEN"
	CodeNotFound           = "NOT_FOUND"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInternal           = "INTERNAL"
)

var classes = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{ErrValidation, http.StatusBadRequest, CodeValidation, "Validation failed"},
	{ErrDuplicateUsername, http.StatusBadRequest, CodeDuplicateUsername, "Username already exists"},
	{ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password"},
	{ErrMissingToken, http.StatusUnauthorized, CodeMissingToken, "Authentication required"},
	{ErrInvalidToken, http.StatusUnauthorized, CodeInvalidToken, "Invalid token"},
	{ErrExpiredToken, http.StatusUnauthorized, CodeExpiredToken, "Token expired"},
	{ErrNotFound, http.StatusNotFound, CodeNotFound, "User not found"},
	{ErrStorageUnavailable, http.StatusInternalServerError, CodeStorageUnavailable, "Internal Server Error"},
}

// HTTPStatus maps err onto a response status. Unclassified errors are 500.
func HTTPStatus(err error) int {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}

// Code returns the public code for err, or CodeInternal when unclassified.
func Code(err error) string {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Message returns the client-safe message for err. Server faults never leak
// their underlying cause.
func Message(err error) string {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.message
		}
	}
	return "Internal Server Error"
}
