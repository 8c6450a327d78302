package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrInvalidInput - missing or malformed request fields (400, no partial effect)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found (404; ritual lookups degrade to mock instead)
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized - shared-secret check failed (401)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStorage - persistence layer unreachable or misconfigured (500)
	ErrStorage = errors.New("storage error")

	// ErrUpstream - webhook returned a non-success status or an unusable body (502)
	ErrUpstream = errors.New("upstream error")

	// ErrTransient - timeout or unreachable endpoint
	ErrTransient = errors.New("transient error")

	// ErrInternal - anything else (500)
	ErrInternal = errors.New("internal error")
)
