package glean

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the two failure classes the session handles itself.
// Everything else surfaces to the caller unchanged.
var (
	// ErrInvalidOrigin marks a backend origin that is missing, malformed, or
	// uses a scheme other than http/https. The request is failed before any
	// network I/O.
	ErrInvalidOrigin = errors.New("invalid backend origin")

	// ErrSessionExpired marks a terminal authentication failure: the refresh
	// token is gone or the refresh call itself was rejected. Stored tokens
	// have been cleared; the user must log in again.
	ErrSessionExpired = errors.New("session expired")
)

// APIError describes a non-2xx response from the glean backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api returned status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool { return statusIs(err, http.StatusNotFound) }

func statusIs(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
