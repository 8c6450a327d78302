package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// IsCategory checks if error belongs to specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// Error is a categorised error whose text is safe to show to a caller.
type Error struct {
	Category error
	Msg      string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Category }

// NotFound wraps error as not found
func NotFound(message string) error {
	return &Error{Category: ErrNotFound, Msg: message}
}

// InvalidInput wraps error as invalid input
func InvalidInput(message string) error {
	return &Error{Category: ErrInvalidInput, Msg: message}
}

// Unauthorized wraps error as unauthorized
func Unauthorized(message string) error {
	return &Error{Category: ErrUnauthorized, Msg: message}
}

// Storage marks err as a persistence failure while keeping the cause in the chain.
func Storage(message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return fmt.Errorf("%s: %w", message, err)
	}
	return fmt.Errorf("%s: %w: %w", message, ErrStorage, err)
}

// Transient wraps error as transient
func Transient(message string) error {
	return &Error{Category: ErrTransient, Msg: message}
}

// Internal wraps error as internal
func Internal(message string) error {
	return &Error{Category: ErrInternal, Msg: message}
}

// PublicMessage returns the caller-facing text of err. Categorised errors report
// their own message without the chain they were wrapped in.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}

// Category returns the taxonomy name for an error
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return "ErrInvalidInput"
	case errors.Is(err, ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, ErrUnauthorized):
		return "ErrUnauthorized"
	case errors.Is(err, ErrStorage):
		return "ErrStorage"
	case errors.Is(err, ErrUpstream):
		return "ErrUpstream"
	case errors.Is(err, ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return "ErrTransient"
	case errors.Is(err, ErrInternal):
		return "ErrInternal"
	default:
		return "Unknown"
	}
}

// HTTPStatus maps an error category to the status code reported at the API boundary.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrTransient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
