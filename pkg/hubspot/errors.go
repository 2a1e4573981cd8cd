// pkg/hubspot/errors.go
package hubspot

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the CRM API. The status code drives
// retry classification: rate-limit responses are retried with backoff,
// permission failures are terminal for the sub-fetch, and server-side
// errors are treated as transient.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsRateLimit reports whether the error is a rate-limit response.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsPermission reports whether the error is an authorization or missing-scope
// failure.
func (e *APIError) IsPermission() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Temporary reports whether the error is worth retrying.
func (e *APIError) Temporary() bool {
	return e.IsRateLimit() || e.StatusCode >= 500
}

// IsRateLimit reports whether err is a CRM rate-limit response.
func IsRateLimit(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsRateLimit()
}

// IsPermission reports whether err is a CRM authorization failure.
func IsPermission(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsPermission()
}

// IsTransient reports whether err should be retried: either a retryable API
// response or a network-level failure (timeouts, resets, transport errors
// surface as non-APIError values from the HTTP client).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	// Anything that never produced an HTTP status is a connection-level
	// failure and is assumed transient.
	return true
}
