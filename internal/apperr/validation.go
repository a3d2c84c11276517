package apperr

import "strings"

// ValidationError carries the individual problems found in a request.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Details []string
}

// Validation builds a ValidationError from one message per problem.
func Validation(details ...string) error {
	return &ValidationError{Details: details}
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
