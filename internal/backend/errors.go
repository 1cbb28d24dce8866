package backend

import (
	"errors"
	"fmt"
)

// ErrLiveSessionActive is returned by [Client.StartLive] when a live
// transcription session is already open. The prior session must be closed
// explicitly first — there is no implicit replacement and no auto-reconnect.
var ErrLiveSessionActive = errors.New("backend: live session already active")

// APIError describes a failed backend call. A zero Status means the request
// never produced an HTTP response (transport failure); callers that only care
// about the class of failure can use [APIError.IsNetwork].
type APIError struct {
	// Endpoint is the logical endpoint name (e.g., "transcribe", "voices").
	Endpoint string

	// Status is the HTTP status code, or 0 for transport failures.
	Status int

	// Message is the server-provided or transport error detail.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend: %s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("backend: %s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error { return e.Err }

// IsNetwork reports whether the failure happened before any HTTP response.
func (e *APIError) IsNetwork() bool { return e.Status == 0 }
