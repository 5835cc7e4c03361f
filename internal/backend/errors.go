package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the backend rejected the token (HTTP 401).
	ErrUnauthorized = errors.New("backend rejected the access token")
	// ErrNotFound means the video has no subtitle track of the requested kind (HTTP 404).
	ErrNotFound = errors.New("subtitles not found for video")
)

// StatusError is any other non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors are permanent.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode >= 500
}

func statusError(code int, body []byte) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return &StatusError{StatusCode: code, Body: string(body)}
	}
}
