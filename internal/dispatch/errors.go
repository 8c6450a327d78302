package dispatch

import (
	"fmt"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
)

// UpstreamError is a webhook that answered with a non-success status.
type UpstreamError struct {
	Status  int
	Message string
	// Data is the decoded response body, when there was one.
	Data map[string]any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error { return apperrors.ErrUpstream }

// TransportError is a webhook that could not be reached or whose success
// response could not be decoded.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("webhook %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{apperrors.ErrTransient, e.Err} }
