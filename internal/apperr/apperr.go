// Package apperr defines the recoverable, user-facing failure kinds shared by
// the core services. Handlers classify with errors.Is/errors.As; anything that
// does not match one of these is treated as a storage failure.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports an absent entity or relation row.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a duplicate relation or subscription row.
	ErrConflict = errors.New("already exists")
	// ErrForbidden reports a mutation attempt by a user who is not the author.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated reports a mutating action without a current user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrSelfSubscription reports an attempt to subscribe to oneself.
	ErrSelfSubscription = errors.New("cannot subscribe to yourself")
	// ErrEmptyCart reports a shopping-list download with nothing in the cart.
	ErrEmptyCart = errors.New("shopping cart is empty")
)

// ValidationError carries one or more field-level problems with an input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validation builds a single-field ValidationError.
func Validation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
